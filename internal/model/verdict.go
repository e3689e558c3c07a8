package model

import "time"

// Verdict categories. An attack verdict carries the detection path that
// produced it: CategoryIntrusion for the signature ensemble,
// CategoryAnomaly for an anomaly-detector override.
const (
	CategoryIntrusion = "intrusion"
	CategoryAnomaly   = "anomaly"
)

// Verdict is the fused decision for one record. Derived, never mutated
// after creation.
type Verdict struct {
	RecordID   int64     `json:"record_id"`
	SourceAddr string    `json:"source_addr"`
	Timestamp  time.Time `json:"timestamp"`

	Attack     bool    `json:"attack"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	AttackProb float64 `json:"attack_probability"`

	Predictions  []Prediction `json:"predictions"`
	AnomalyScore float64      `json:"anomaly_score"`
	Anomalous    bool         `json:"anomalous"`

	// Degraded is set when one or more configured models were unavailable
	// and the ensemble voted with renormalized weights.
	Degraded bool `json:"degraded"`
}
