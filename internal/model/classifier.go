package model

// Classifier is one constituent model of the ensemble.
type Classifier interface {
	// Name returns the model's configured name (e.g. "knn", "mlp").
	Name() string

	// Predict scores a single encoded vector.
	Predict(vec EncodedVector) (Prediction, error)
}

// AnomalyDetector scores how far a sample sits from the trained baseline.
type AnomalyDetector interface {
	// Score returns the anomaly score and whether the sample is flagged.
	Score(vec EncodedVector) (float64, bool)
}
