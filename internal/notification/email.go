package notification

import (
	"fmt"
	"net/smtp"
	"strings"

	"NetSentinel/internal/config"
	"NetSentinel/internal/model"
)

// EmailNotifier delivers alerts over SMTP.
type EmailNotifier struct {
	cfg  config.SMTPConfig
	auth smtp.Auth
}

// NewEmailNotifier creates a new EmailNotifier.
func NewEmailNotifier(cfg config.SMTPConfig) model.Notifier {
	// PlainAuth will not send credentials until the server identifies itself as a trusted one.
	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	return &EmailNotifier{cfg: cfg, auth: auth}
}

func (n *EmailNotifier) Name() string { return "email" }

// Send mails the alert to the configured recipients.
func (n *EmailNotifier) Send(alert *model.Alert) error {
	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	recipients := strings.Split(n.cfg.To, ",")

	subject := fmt.Sprintf("[%s] %s alert from %s", strings.ToUpper(alert.Tier), alert.Category, alert.SourceAddr)
	msg := []byte("To: " + n.cfg.To + "\r\n" +
		"From: " + n.cfg.From + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n" +
		"\r\n" +
		renderBody(alert))

	if err := smtp.SendMail(addr, n.auth, n.cfg.From, recipients, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func renderBody(alert *model.Alert) string {
	var b strings.Builder
	b.WriteString("<h2>NetSentinel Alert</h2>")
	fmt.Fprintf(&b, "<p><b>ID:</b> %s</p>", alert.ID)
	fmt.Fprintf(&b, "<p><b>Source:</b> %s</p>", alert.SourceAddr)
	fmt.Fprintf(&b, "<p><b>Category:</b> %s</p>", alert.Category)
	fmt.Fprintf(&b, "<p><b>Severity:</b> %d (%s)</p>", alert.Severity, alert.Tier)
	fmt.Fprintf(&b, "<p><b>Confidence:</b> %.2f</p>", alert.Confidence)
	fmt.Fprintf(&b, "<p><b>First seen:</b> %s</p>", alert.FirstSeen.Format("2006-01-02 15:04:05"))
	if alert.RepeatCount > 1 {
		fmt.Fprintf(&b, "<p><b>Occurrences:</b> %d</p>", alert.RepeatCount)
	}
	if alert.Message != "" {
		fmt.Fprintf(&b, "<p>%s</p>", alert.Message)
	}
	return b.String()
}
