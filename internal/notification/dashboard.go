package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"NetSentinel/internal/model"
)

// DashboardNotifier publishes alerts on a Redis channel the dashboard
// subscribes to. It piggybacks on the alert store's client.
type DashboardNotifier struct {
	client  *redis.Client
	channel string
}

func NewDashboardNotifier(client *redis.Client, channel string) model.Notifier {
	return &DashboardNotifier{client: client, channel: channel}
}

func (n *DashboardNotifier) Name() string { return "dashboard" }

func (n *DashboardNotifier) Send(alert *model.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish alert: %w", err)
	}
	return nil
}
