package hybrid

import (
	"sync/atomic"
	"time"

	"NetSentinel/internal/ensemble"
	"NetSentinel/internal/model"
)

// Fuser combines the signature ensemble's result with the anomaly
// detector's score into the final verdict.
//
// The disambiguation rule is ordered: a high-confidence ensemble result
// without an anomaly flag is trusted as-is; an anomaly flag overrides
// everything below that bar, since it represents patterns the trained
// models have never seen; otherwise the ensemble's raw label stands.
type Fuser struct {
	ensemble            *ensemble.Ensemble
	detector            model.AnomalyDetector
	confidenceThreshold float64

	nextID atomic.Int64
}

func NewFuser(ens *ensemble.Ensemble, detector model.AnomalyDetector, confidenceThreshold float64) *Fuser {
	return &Fuser{
		ensemble:            ens,
		detector:            detector,
		confidenceThreshold: confidenceThreshold,
	}
}

// Evaluate classifies one encoded record and applies the fusion rule.
// The SourceAddr of the feature vector is carried through for alert
// correlation.
func (f *Fuser) Evaluate(fv *model.FeatureVector, vec model.EncodedVector) (*model.Verdict, error) {
	res, err := f.ensemble.Classify(vec)
	if err != nil {
		return nil, err
	}
	score, flagged := f.detector.Score(vec)

	v := &model.Verdict{
		RecordID:     f.nextID.Add(1),
		SourceAddr:   fv.SourceAddr,
		Timestamp:    time.Now(),
		Confidence:   res.Confidence,
		AttackProb:   res.AttackProb,
		Predictions:  res.Predictions,
		AnomalyScore: score,
		Anomalous:    flagged,
		Degraded:     res.Degraded,
	}

	switch {
	case res.Confidence > f.confidenceThreshold && !flagged:
		v.Attack = res.Label == 1
		if v.Attack {
			v.Category = model.CategoryIntrusion
		}
	case flagged:
		v.Attack = true
		v.Category = model.CategoryAnomaly
	default:
		v.Attack = res.Label == 1
		if v.Attack {
			v.Category = model.CategoryIntrusion
		}
	}
	return v, nil
}
