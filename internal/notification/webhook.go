package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"NetSentinel/internal/config"
	"NetSentinel/internal/model"
)

// WebhookNotifier posts the alert as JSON to a configured endpoint.
type WebhookNotifier struct {
	cfg    config.WebhookConfig
	client *http.Client
}

func NewWebhookNotifier(cfg config.WebhookConfig) model.Notifier {
	return &WebhookNotifier{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *WebhookNotifier) Name() string { return "webhook" }

func (n *WebhookNotifier) Send(alert *model.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}
	resp, err := n.client.Post(n.cfg.URL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to post alert: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// SMSNotifier delivers a short alert summary through an HTTP SMS
// gateway.
type SMSNotifier struct {
	cfg    config.SMSConfig
	client *http.Client
}

func NewSMSNotifier(cfg config.SMSConfig) model.Notifier {
	return &SMSNotifier{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *SMSNotifier) Name() string { return "sms" }

func (n *SMSNotifier) Send(alert *model.Alert) error {
	text := fmt.Sprintf("%s alert (%s) from %s, severity %d, confidence %.2f",
		alert.Category, alert.Tier, alert.SourceAddr, alert.Severity, alert.Confidence)
	payload, err := json.Marshal(map[string]string{
		"to":   n.cfg.To,
		"text": text,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal sms payload: %w", err)
	}
	resp, err := n.client.Post(n.cfg.GatewayURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to reach sms gateway: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}
	return nil
}
