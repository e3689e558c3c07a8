package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NetSentinel/internal/feature"
)

func writeFile(t *testing.T, dir, name string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

// writeBundle lays out a loadable artifact directory and returns it.
func writeBundle(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	n := feature.NumFields

	writeFile(t, dir, "manifest.json", map[string]any{
		"schema_version": SchemaVersion,
		"feature_count":  n,
		"scaler":         "scaler.json",
		"encoders":       "encoders.json",
		"anomaly":        "anomaly.json",
		"stacking":       "stacking.json",
		"models": []map[string]any{
			{"name": "knn", "file": "knn.json", "weight": 0.3},
			{"name": "mlp", "file": "mlp.json", "weight": 0.35},
			{"name": "xgb", "file": "xgb.json", "weight": 0.35},
		},
	})
	writeFile(t, dir, "scaler.json", map[string]any{
		"means": make([]float64, n),
		"stds":  ones(n),
	})
	writeFile(t, dir, "encoders.json", map[string]any{
		"unknown_code": -1,
		"vocab": map[string]map[string]float64{
			"proto":   {"tcp": 0, "udp": 1, "icmp": 2},
			"service": {"-": 0, "http": 1},
			"state":   {"INT": 0, "FIN": 1},
		},
	})
	writeFile(t, dir, "anomaly.json", map[string]any{
		"means":     make([]float64, n),
		"stds":      ones(n),
		"threshold": 3.0,
	})
	for _, name := range []string{"knn.json", "mlp.json", "xgb.json"} {
		writeFile(t, dir, name, map[string]any{"bias": 0.1, "weights": ones(n)})
	}
	writeFile(t, dir, "stacking.json", map[string]any{"bias": 0, "weights": ones(6)})
	return dir
}

func TestLoadCompleteBundle(t *testing.T) {
	dir := writeBundle(t)
	b, err := Load(dir, 0.5)
	require.NoError(t, err)

	assert.Len(t, b.Models, 3)
	assert.False(t, b.Degraded)
	assert.NotNil(t, b.Encoder)
	assert.NotNil(t, b.Detector)
	assert.NotNil(t, b.Stacking)
	assert.InDelta(t, 0.3, b.Weights["knn"], 1e-9)
}

func TestLoadMissingModelDegrades(t *testing.T) {
	dir := writeBundle(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "mlp.json")))

	b, err := Load(dir, 0.5)
	require.NoError(t, err)
	assert.Len(t, b.Models, 2)
	assert.True(t, b.Degraded)
	// The meta-model cannot fuse a partial ensemble.
	assert.Nil(t, b.Stacking)
}

func TestLoadNoModelsFatal(t *testing.T) {
	dir := writeBundle(t)
	for _, name := range []string{"knn.json", "mlp.json", "xgb.json"} {
		require.NoError(t, os.Remove(filepath.Join(dir, name)))
	}
	_, err := Load(dir, 0.5)
	require.Error(t, err)
}

func TestLoadRejectsSchemaVersionMismatch(t *testing.T) {
	dir := writeBundle(t)
	writeFile(t, dir, "manifest.json", map[string]any{
		"schema_version": SchemaVersion + 1,
		"feature_count":  feature.NumFields,
		"scaler":         "scaler.json",
		"encoders":       "encoders.json",
		"anomaly":        "anomaly.json",
	})
	_, err := Load(dir, 0.5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema version")
}

func TestLoadRejectsFeatureCountMismatch(t *testing.T) {
	dir := writeBundle(t)
	writeFile(t, dir, "manifest.json", map[string]any{
		"schema_version": SchemaVersion,
		"feature_count":  feature.NumFields - 1,
		"scaler":         "scaler.json",
		"encoders":       "encoders.json",
		"anomaly":        "anomaly.json",
	})
	_, err := Load(dir, 0.5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feature count")
}

func TestLoadMissingScalerFatal(t *testing.T) {
	dir := writeBundle(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "scaler.json")))
	_, err := Load(dir, 0.5)
	require.Error(t, err)
}

func TestLoadRejectsModelShapeMismatch(t *testing.T) {
	dir := writeBundle(t)
	writeFile(t, dir, "knn.json", map[string]any{"bias": 0, "weights": ones(3)})
	_, err := Load(dir, 0.5)
	require.Error(t, err)
}
