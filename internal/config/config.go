package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// NATSConfig holds the connection details for the packet and alert bus.
type NATSConfig struct {
	URL           string `yaml:"url"`
	PacketSubject string `yaml:"packet_subject"`
	AlertSubject  string `yaml:"alert_subject"`
}

// TrackerConfig holds the configuration for the flow tracker.
type TrackerConfig struct {
	NumShards           uint32 `yaml:"num_shards"`
	NumWorkers          int    `yaml:"num_workers"`
	SizeOfPacketChannel int    `yaml:"size_of_packet_channel"`
	IdleTimeout         string `yaml:"idle_timeout"`
	Lifetime            string `yaml:"lifetime"`
	SweepInterval       string `yaml:"sweep_interval"`
}

// ArtifactConfig points at the model-artifact bundle directory.
type ArtifactConfig struct {
	Dir string `yaml:"dir"`
}

// EnsembleConfig selects the voting strategy for the classifier ensemble.
// Per-model weights live in the artifact manifest, versioned with the
// models themselves.
type EnsembleConfig struct {
	Strategy           string  `yaml:"strategy"`
	DetectionThreshold float64 `yaml:"detection_threshold"`
}

// FusionConfig holds the hybrid signature/anomaly fusion threshold.
type FusionConfig struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
}

// CorrelatorConfig holds alerting thresholds, the deduplication window and
// the severity-tier routing table.
type CorrelatorConfig struct {
	AlertThreshold      float64             `yaml:"alert_threshold"`
	HighConfidence      float64             `yaml:"high_confidence"`
	RepeatWindow        string              `yaml:"repeat_window"`
	RecentCount         int                 `yaml:"recent_count"`
	MaxSeverity         int                 `yaml:"max_severity"`
	BaseSeverity        map[string]int      `yaml:"base_severity"`
	Routes              map[string][]string `yaml:"routes"`
	NotifyRetries       int                 `yaml:"notify_retries"`
	NotifyRetryBackoff  string              `yaml:"notify_retry_backoff"`
}

// SMTPConfig holds the email notification channel settings.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// WebhookConfig holds the webhook notification channel settings.
type WebhookConfig struct {
	URL string `yaml:"url"`
}

// SMSConfig holds the SMS gateway settings. Delivery goes through an
// HTTP gateway; there is no direct carrier integration.
type SMSConfig struct {
	GatewayURL string `yaml:"gateway_url"`
	To         string `yaml:"to"`
}

// NotificationConfig groups the notification channel settings.
type NotificationConfig struct {
	SMTP    SMTPConfig    `yaml:"smtp"`
	Webhook WebhookConfig `yaml:"webhook"`
	SMS     SMSConfig     `yaml:"sms"`
}

// RedisConfig holds the alert store and dashboard channel settings.
type RedisConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Addr          string `yaml:"addr"`
	Password      string `yaml:"password"`
	DB            int    `yaml:"db"`
	AlertLimit    int64  `yaml:"alert_limit"`
	SeverityLimit int64  `yaml:"severity_limit"`
	Channel       string `yaml:"channel"`
}

// ClickHouseConfig holds the flow/verdict persistence settings.
type ClickHouseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// APIConfig holds the detection API server settings.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	NATS          NATSConfig         `yaml:"nats"`
	Tracker       TrackerConfig      `yaml:"tracker"`
	Artifacts     ArtifactConfig     `yaml:"artifacts"`
	Ensemble      EnsembleConfig     `yaml:"ensemble"`
	Fusion        FusionConfig       `yaml:"fusion"`
	Correlator    CorrelatorConfig   `yaml:"correlator"`
	Notifications NotificationConfig `yaml:"notifications"`
	Redis         RedisConfig        `yaml:"redis"`
	ClickHouse    ClickHouseConfig   `yaml:"clickhouse"`
	API           APIConfig          `yaml:"api"`
}

// LoadConfig reads the configuration from a YAML file and returns a Config
// struct with defaults applied for unset values.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills zero values with the documented defaults. The numeric
// thresholds and severity weights mirror the shipped model artifacts and
// are tunable, not invariants.
func (c *Config) ApplyDefaults() {
	if c.NATS.URL == "" {
		c.NATS.URL = "nats://127.0.0.1:4222"
	}
	if c.NATS.PacketSubject == "" {
		c.NATS.PacketSubject = "sentinel.packets.raw"
	}
	if c.NATS.AlertSubject == "" {
		c.NATS.AlertSubject = "sentinel.alerts"
	}
	if c.Tracker.NumShards == 0 || c.Tracker.NumShards >= 32768 {
		c.Tracker.NumShards = 256
	}
	if c.Tracker.NumWorkers <= 0 {
		c.Tracker.NumWorkers = 4
	}
	if c.Tracker.SizeOfPacketChannel <= 0 {
		c.Tracker.SizeOfPacketChannel = 1000
	}
	if c.Tracker.IdleTimeout == "" {
		c.Tracker.IdleTimeout = "15s"
	}
	if c.Tracker.Lifetime == "" {
		c.Tracker.Lifetime = "120s"
	}
	if c.Tracker.SweepInterval == "" {
		c.Tracker.SweepInterval = "1s"
	}
	if c.Ensemble.Strategy == "" {
		c.Ensemble.Strategy = "soft"
	}
	if c.Ensemble.DetectionThreshold == 0 {
		c.Ensemble.DetectionThreshold = 0.5
	}
	if c.Fusion.ConfidenceThreshold == 0 {
		c.Fusion.ConfidenceThreshold = 0.6
	}
	if c.Correlator.AlertThreshold == 0 {
		c.Correlator.AlertThreshold = 0.7
	}
	if c.Correlator.HighConfidence == 0 {
		c.Correlator.HighConfidence = 0.9
	}
	if c.Correlator.RepeatWindow == "" {
		c.Correlator.RepeatWindow = "5m"
	}
	if c.Correlator.RecentCount <= 0 {
		c.Correlator.RecentCount = 50
	}
	if c.Correlator.MaxSeverity <= 0 {
		c.Correlator.MaxSeverity = 5
	}
	if c.Correlator.BaseSeverity == nil {
		c.Correlator.BaseSeverity = map[string]int{
			"intrusion": 2,
			"anomaly":   2,
		}
	}
	if c.Correlator.Routes == nil {
		c.Correlator.Routes = map[string][]string{
			"critical": {"email", "sms"},
			"high":     {"email"},
			"medium":   {"dashboard"},
			"low":      {"dashboard"},
		}
	}
	if c.Correlator.NotifyRetries <= 0 {
		c.Correlator.NotifyRetries = 3
	}
	if c.Correlator.NotifyRetryBackoff == "" {
		c.Correlator.NotifyRetryBackoff = "2s"
	}
	if c.Redis.AlertLimit <= 0 {
		c.Redis.AlertLimit = 10000
	}
	if c.Redis.SeverityLimit <= 0 {
		c.Redis.SeverityLimit = 1000
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "alerts"
	}
	if c.API.ListenAddr == "" {
		c.API.ListenAddr = ":8080"
	}
}
