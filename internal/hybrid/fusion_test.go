package hybrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NetSentinel/internal/ensemble"
	"NetSentinel/internal/model"
)

// fixedModel answers with a constant attack probability.
type fixedModel struct {
	name string
	prob float64
}

func (m *fixedModel) Name() string { return m.name }

func (m *fixedModel) Predict(_ model.EncodedVector) (model.Prediction, error) {
	pred := model.Prediction{Model: m.name, Probs: [2]float64{1 - m.prob, m.prob}}
	if m.prob >= 0.5 {
		pred.Label = 1
	}
	return pred, nil
}

// fixedDetector answers with a constant score and flag.
type fixedDetector struct {
	score   float64
	flagged bool
}

func (d *fixedDetector) Score(_ model.EncodedVector) (float64, bool) {
	return d.score, d.flagged
}

func newFuser(t *testing.T, prob float64, det model.AnomalyDetector) *Fuser {
	t.Helper()
	ens, err := ensemble.New(
		[]model.Classifier{&fixedModel{"knn", prob}, &fixedModel{"mlp", prob}},
		nil, ensemble.Soft, nil, false,
	)
	require.NoError(t, err)
	return NewFuser(ens, det, 0.6)
}

func TestFuserTrustsHighConfidenceEnsemble(t *testing.T) {
	// Confident attack verdict, no anomaly flag: ensemble label stands.
	f := newFuser(t, 0.9, &fixedDetector{score: 0.2})
	v, err := f.Evaluate(&model.FeatureVector{SourceAddr: "10.0.0.2"}, make(model.EncodedVector, 4))
	require.NoError(t, err)
	assert.True(t, v.Attack)
	assert.Equal(t, model.CategoryIntrusion, v.Category)
	assert.False(t, v.Anomalous)
	assert.Equal(t, "10.0.0.2", v.SourceAddr)
}

func TestFuserHighConfidenceNormalIgnoresNothing(t *testing.T) {
	// Confident normal verdict without a flag stays normal.
	f := newFuser(t, 0.1, &fixedDetector{score: 0.3})
	v, err := f.Evaluate(&model.FeatureVector{}, make(model.EncodedVector, 4))
	require.NoError(t, err)
	assert.False(t, v.Attack)
	assert.Empty(t, v.Category)
}

func TestFuserAnomalyOverridesLowConfidence(t *testing.T) {
	// Ensemble says normal with low confidence, detector flags: attack.
	f := newFuser(t, 0.45, &fixedDetector{score: 4.2, flagged: true})
	v, err := f.Evaluate(&model.FeatureVector{}, make(model.EncodedVector, 4))
	require.NoError(t, err)
	assert.True(t, v.Attack)
	assert.Equal(t, model.CategoryAnomaly, v.Category)
	assert.True(t, v.Anomalous)
	assert.InDelta(t, 4.2, v.AnomalyScore, 1e-9)
}

func TestFuserAnomalyOverridesConfidentNormal(t *testing.T) {
	// The trust branch requires the absence of a flag, so a flagged
	// sample becomes an attack even when the ensemble is confidently
	// normal.
	f := newFuser(t, 0.05, &fixedDetector{score: 5.0, flagged: true})
	v, err := f.Evaluate(&model.FeatureVector{}, make(model.EncodedVector, 4))
	require.NoError(t, err)
	assert.True(t, v.Attack)
	assert.Equal(t, model.CategoryAnomaly, v.Category)
}

func TestFuserLowConfidenceFallsBackToEnsemble(t *testing.T) {
	// Just over the decision line but under the trust bar, no flag:
	// the raw ensemble label is used.
	f := newFuser(t, 0.55, &fixedDetector{})
	v, err := f.Evaluate(&model.FeatureVector{}, make(model.EncodedVector, 4))
	require.NoError(t, err)
	assert.True(t, v.Attack)
	assert.Equal(t, model.CategoryIntrusion, v.Category)
}

func TestFuserRecordIDsMonotonic(t *testing.T) {
	f := newFuser(t, 0.9, &fixedDetector{})
	a, err := f.Evaluate(&model.FeatureVector{}, make(model.EncodedVector, 4))
	require.NoError(t, err)
	b, err := f.Evaluate(&model.FeatureVector{}, make(model.EncodedVector, 4))
	require.NoError(t, err)
	assert.Greater(t, b.RecordID, a.RecordID)
}

func TestZScoreDetector(t *testing.T) {
	d, err := NewZScoreDetector([]float64{0, 0}, []float64{1, 1}, 2.0)
	require.NoError(t, err)

	score, flagged := d.Score(model.EncodedVector{0.5, -0.5})
	assert.InDelta(t, 0.5, score, 1e-9)
	assert.False(t, flagged)

	score, flagged = d.Score(model.EncodedVector{4, -4})
	assert.InDelta(t, 4.0, score, 1e-9)
	assert.True(t, flagged)
}

func TestZScoreDetectorValidation(t *testing.T) {
	_, err := NewZScoreDetector([]float64{0}, []float64{1, 2}, 1)
	require.Error(t, err)
	_, err = NewZScoreDetector(nil, nil, 1)
	require.Error(t, err)
	_, err = NewZScoreDetector([]float64{0}, []float64{1}, 0)
	require.Error(t, err)
}
