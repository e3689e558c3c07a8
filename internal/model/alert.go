package model

import "time"

// AlertStatus is the managed lifecycle state of an alert.
type AlertStatus string

const (
	StatusNew           AlertStatus = "new"
	StatusAcknowledged  AlertStatus = "acknowledged"
	StatusFalsePositive AlertStatus = "false_positive"
)

// Severity bounds and tier names.
const (
	MinSeverity = 1
	MaxSeverity = 5
)

const (
	TierLow      = "low"
	TierMedium   = "medium"
	TierHigh     = "high"
	TierCritical = "critical"
)

// TierForScore maps a severity score onto a notification tier.
func TierForScore(score int) string {
	switch {
	case score >= 4:
		return TierCritical
	case score == 3:
		return TierHigh
	case score == 2:
		return TierMedium
	default:
		return TierLow
	}
}

// Alert is a threshold-crossing verdict enriched by the correlator.
// Mutable only through the correlator's explicit state transitions.
type Alert struct {
	ID         string  `json:"id"`
	Category   string  `json:"category"`
	Severity   int     `json:"severity"`
	Tier       string  `json:"tier"`
	Confidence float64 `json:"confidence"`
	AttackProb float64 `json:"attack_probability"`
	SourceAddr string  `json:"source_addr"`
	Message    string  `json:"message"`

	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	RepeatCount int       `json:"repeat_count"`

	Status         AlertStatus `json:"status"`
	AcknowledgedBy string      `json:"acknowledged_by,omitempty"`
	AcknowledgedAt time.Time   `json:"acknowledged_at,omitempty"`
	MarkedFPBy     string      `json:"marked_fp_by,omitempty"`
	MarkedFPAt     time.Time   `json:"marked_fp_at,omitempty"`

	// NotifiedVia lists the channels that accepted delivery.
	NotifiedVia []string `json:"notified_via,omitempty"`
}
