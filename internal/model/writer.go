package model

// RecordWriter defines a generic interface for persisting a closed flow
// together with its extracted features and fused verdict.
type RecordWriter interface {
	// Write persists one scored flow. Implementations are expected to be
	// safe for concurrent use by the pipeline workers.
	Write(rec *FlowRecord, fv *FeatureVector, verdict *Verdict) error

	// Close flushes any buffered rows and releases the connection.
	Close() error
}
