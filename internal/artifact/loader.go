package artifact

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"NetSentinel/internal/ensemble"
	"NetSentinel/internal/feature"
	"NetSentinel/internal/hybrid"
	"NetSentinel/internal/model"
)

// SchemaVersion is the artifact layout this loader understands.
const SchemaVersion = 1

// manifest is the top-level artifact index file.
type manifest struct {
	SchemaVersion int    `json:"schema_version"`
	FeatureCount  int    `json:"feature_count"`
	Scaler        string `json:"scaler"`
	Encoders      string `json:"encoders"`
	Anomaly       string `json:"anomaly"`
	Stacking      string `json:"stacking,omitempty"`
	Models        []struct {
		Name   string  `json:"name"`
		File   string  `json:"file"`
		Weight float64 `json:"weight"`
	} `json:"models"`
}

type scalerFile struct {
	Means []float64 `json:"means"`
	Stds  []float64 `json:"stds"`
}

type encodersFile struct {
	UnknownCode float64                       `json:"unknown_code"`
	Vocab       map[string]map[string]float64 `json:"vocab"`
}

type modelFile struct {
	Bias    float64   `json:"bias"`
	Weights []float64 `json:"weights"`
}

type anomalyFile struct {
	Means     []float64 `json:"means"`
	Stds      []float64 `json:"stds"`
	Threshold float64   `json:"threshold"`
}

// Bundle is everything loaded from an artifact directory, read-only for
// the process lifetime.
type Bundle struct {
	Encoder  *feature.Encoder
	Models   []model.Classifier
	Weights  map[string]float64
	Detector *hybrid.ZScoreDetector
	Stacking *ensemble.StackingModel

	// Degraded is set when a configured constituent model could not be
	// loaded and the ensemble will vote with renormalized weights.
	Degraded bool
}

// Load reads a versioned artifact directory. The scaler, encoder table
// and anomaly detector are required and any incompatibility is fatal; a
// missing constituent model only degrades the bundle, because the
// ensemble can renormalize around it.
func Load(dir string, detectionThreshold float64) (*Bundle, error) {
	var m manifest
	if err := readJSON(filepath.Join(dir, "manifest.json"), &m); err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}
	if m.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("artifact schema version %d, this build requires %d", m.SchemaVersion, SchemaVersion)
	}
	if m.FeatureCount != feature.NumFields {
		return nil, fmt.Errorf("artifact feature count %d does not match schema length %d", m.FeatureCount, feature.NumFields)
	}

	var sc scalerFile
	if err := readJSON(filepath.Join(dir, m.Scaler), &sc); err != nil {
		return nil, fmt.Errorf("load scaler: %w", err)
	}
	var ec encodersFile
	if err := readJSON(filepath.Join(dir, m.Encoders), &ec); err != nil {
		return nil, fmt.Errorf("load encoders: %w", err)
	}
	enc, err := feature.NewEncoder(ec.Vocab, ec.UnknownCode, sc.Means, sc.Stds)
	if err != nil {
		return nil, fmt.Errorf("build encoder: %w", err)
	}

	var an anomalyFile
	if err := readJSON(filepath.Join(dir, m.Anomaly), &an); err != nil {
		return nil, fmt.Errorf("load anomaly detector: %w", err)
	}
	if len(an.Means) != feature.NumFields {
		return nil, fmt.Errorf("anomaly detector length %d does not match schema length %d", len(an.Means), feature.NumFields)
	}
	det, err := hybrid.NewZScoreDetector(an.Means, an.Stds, an.Threshold)
	if err != nil {
		return nil, fmt.Errorf("build anomaly detector: %w", err)
	}

	b := &Bundle{
		Encoder:  enc,
		Weights:  make(map[string]float64, len(m.Models)),
		Detector: det,
	}
	for _, entry := range m.Models {
		var mf modelFile
		path := filepath.Join(dir, entry.File)
		if err := readJSON(path, &mf); err != nil {
			if os.IsNotExist(err) {
				log.Printf("model %s unavailable (%s), ensemble degrades", entry.Name, path)
				b.Degraded = true
				continue
			}
			return nil, fmt.Errorf("load model %s: %w", entry.Name, err)
		}
		if len(mf.Weights) != feature.NumFields {
			return nil, fmt.Errorf("model %s weight length %d does not match schema length %d",
				entry.Name, len(mf.Weights), feature.NumFields)
		}
		b.Models = append(b.Models, ensemble.NewLogisticModel(entry.Name, mf.Bias, mf.Weights, detectionThreshold))
		b.Weights[entry.Name] = entry.Weight
	}
	if len(b.Models) == 0 {
		return nil, fmt.Errorf("no constituent models available in %s", dir)
	}

	if m.Stacking != "" {
		if b.Degraded {
			// The meta-model was trained on every constituent's output
			// and cannot fuse a partial ensemble.
			log.Printf("stacking model skipped: ensemble is degraded")
		} else {
			var sf modelFile
			if err := readJSON(filepath.Join(dir, m.Stacking), &sf); err != nil {
				return nil, fmt.Errorf("load stacking model: %w", err)
			}
			if len(sf.Weights) != 2*len(b.Models) {
				return nil, fmt.Errorf("stacking model weight length %d, want %d", len(sf.Weights), 2*len(b.Models))
			}
			b.Stacking = ensemble.NewStackingModel(sf.Bias, sf.Weights)
		}
	}

	log.Printf("artifacts loaded from %s: %d models, degraded=%v", dir, len(b.Models), b.Degraded)
	return b, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
