package notification

import (
	"github.com/redis/go-redis/v9"

	"NetSentinel/internal/config"
	"NetSentinel/internal/model"
)

// Build assembles the notifier set from config, keyed by channel name
// as used in the correlator routing table. Channels without
// configuration are simply absent; the correlator logs routes that
// point at missing channels.
func Build(cfg config.NotificationConfig, redisClient *redis.Client, channel string) map[string]model.Notifier {
	notifiers := make(map[string]model.Notifier)
	if cfg.SMTP.Host != "" {
		notifiers["email"] = NewEmailNotifier(cfg.SMTP)
	}
	if cfg.Webhook.URL != "" {
		notifiers["webhook"] = NewWebhookNotifier(cfg.Webhook)
	}
	if cfg.SMS.GatewayURL != "" {
		notifiers["sms"] = NewSMSNotifier(cfg.SMS)
	}
	if redisClient != nil {
		notifiers["dashboard"] = NewDashboardNotifier(redisClient, channel)
	}
	return notifiers
}
