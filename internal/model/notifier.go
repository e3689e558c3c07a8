package model

// Notifier defines a generic interface for delivering an alert over one
// notification channel.
type Notifier interface {
	// Name returns the channel name used in routing rules (e.g. "email").
	Name() string

	// Send delivers the alert. A non-nil error means the attempt failed
	// and may be retried by the caller.
	Send(alert *Alert) error
}
