package correlator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"NetSentinel/internal/config"
	"NetSentinel/internal/model"
)

// Store persists alerts in Redis for the dashboard: one key per alert
// plus capped recency lists, overall and per severity tier.
type Store struct {
	client        *redis.Client
	alertLimit    int64
	severityLimit int64
}

// NewStore connects to Redis and verifies the connection. Returns nil
// when the store is disabled in config; the correlator treats a nil
// store as in-memory only.
func NewStore(cfg config.RedisConfig) (*Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Store{
		client:        client,
		alertLimit:    cfg.AlertLimit,
		severityLimit: cfg.SeverityLimit,
	}, nil
}

// Client exposes the underlying connection for the dashboard notifier.
func (s *Store) Client() *redis.Client { return s.client }

// Save writes the alert and pushes its ID onto the recency lists.
func (s *Store) Save(ctx context.Context, alert *model.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}
	pipe := s.client.Pipeline()
	pipe.Set(ctx, "alert:"+alert.ID, payload, 0)
	pipe.LPush(ctx, "alerts:all", alert.ID)
	pipe.LTrim(ctx, "alerts:all", 0, s.alertLimit-1)
	pipe.LPush(ctx, "alerts:severity:"+alert.Tier, alert.ID)
	pipe.LTrim(ctx, "alerts:severity:"+alert.Tier, 0, s.severityLimit-1)
	pipe.Incr(ctx, "stats:alerts:"+alert.Category)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store alert: %w", err)
	}
	return nil
}

// Update rewrites an already-listed alert in place.
func (s *Store) Update(ctx context.Context, alert *model.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}
	if err := s.client.Set(ctx, "alert:"+alert.ID, payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to update alert: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
