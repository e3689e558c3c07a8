package ensemble

import (
	"fmt"
	"math"

	"NetSentinel/internal/model"
)

// LogisticModel is a linear classifier over the encoded feature space.
// Constituent model artifacts (whatever family they were trained as)
// export their decision surface in this form.
type LogisticModel struct {
	name      string
	bias      float64
	weights   []float64
	threshold float64
}

// NewLogisticModel builds a model from artifact parameters. The weight
// vector length is checked against the input at prediction time.
func NewLogisticModel(name string, bias float64, weights []float64, threshold float64) *LogisticModel {
	return &LogisticModel{name: name, bias: bias, weights: weights, threshold: threshold}
}

func (m *LogisticModel) Name() string { return m.name }

// Predict scores the encoded vector. Probs[1] is the attack probability;
// the label crosses at the configured detection threshold.
func (m *LogisticModel) Predict(vec model.EncodedVector) (model.Prediction, error) {
	if len(vec) != len(m.weights) {
		return model.Prediction{}, fmt.Errorf("model %s: input length %d, want %d",
			m.name, len(vec), len(m.weights))
	}
	z := m.bias
	for i, w := range m.weights {
		z += w * vec[i]
	}
	p := sigmoid(z)
	pred := model.Prediction{Model: m.name, Probs: [2]float64{1 - p, p}}
	if p >= m.threshold {
		pred.Label = 1
	}
	return pred, nil
}

// StackingModel is the logistic meta-model that fuses the concatenated
// per-model probability distributions.
type StackingModel struct {
	bias    float64
	weights []float64
}

func NewStackingModel(bias float64, weights []float64) *StackingModel {
	return &StackingModel{bias: bias, weights: weights}
}

// Fuse consumes the per-model probability pairs in ensemble order and
// returns the final attack probability.
func (s *StackingModel) Fuse(preds []model.Prediction) (float64, error) {
	if len(preds)*2 != len(s.weights) {
		return 0, fmt.Errorf("stacking model: %d predictions, want %d", len(preds), len(s.weights)/2)
	}
	z := s.bias
	for i, pred := range preds {
		z += s.weights[2*i] * pred.Probs[0]
		z += s.weights[2*i+1] * pred.Probs[1]
	}
	return sigmoid(z), nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
