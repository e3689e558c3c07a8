package ensemble

import (
	"fmt"
	"log"

	"NetSentinel/internal/model"
)

// VotingStrategy selects how constituent predictions are fused.
type VotingStrategy int

const (
	Majority VotingStrategy = iota
	Weighted
	Soft
	Stacking
)

// ParseStrategy maps the config string to a strategy.
func ParseStrategy(s string) (VotingStrategy, error) {
	switch s {
	case "majority":
		return Majority, nil
	case "weighted":
		return Weighted, nil
	case "soft":
		return Soft, nil
	case "stacking":
		return Stacking, nil
	default:
		return 0, fmt.Errorf("unknown voting strategy %q", s)
	}
}

func (s VotingStrategy) String() string {
	switch s {
	case Majority:
		return "majority"
	case Weighted:
		return "weighted"
	case Soft:
		return "soft"
	case Stacking:
		return "stacking"
	default:
		return "unknown"
	}
}

// Result is the fused output of one classification.
type Result struct {
	Label       int
	Confidence  float64
	AttackProb  float64
	Predictions []model.Prediction
	Degraded    bool
}

// Ensemble fuses the constituent classifiers under one voting strategy.
// Model order fixes the majority tie-break priority: on a tie the label
// of the earliest model in the list wins.
type Ensemble struct {
	models   []model.Classifier
	weights  []float64
	strategy VotingStrategy
	stacking *StackingModel
	degraded bool
}

// New builds an ensemble over the loaded models. Weights are looked up
// by model name and renormalized to sum to one, so an ensemble missing a
// constituent still casts a full vote. Degraded marks that condition
// through every Result.
func New(models []model.Classifier, weights map[string]float64, strategy VotingStrategy, stacking *StackingModel, degraded bool) (*Ensemble, error) {
	if len(models) == 0 {
		return nil, fmt.Errorf("ensemble requires at least one model")
	}
	if strategy == Stacking && stacking == nil {
		if !degraded {
			return nil, fmt.Errorf("stacking strategy selected but no stacking artifact loaded")
		}
		// The meta-model's input layout is positional over the full model
		// list, so with a constituent missing it cannot run. Soft voting
		// over the loaded models keeps the pipeline serving.
		log.Printf("Stacking unavailable on degraded ensemble, falling back to soft voting")
		strategy = Soft
	}

	normalized := make([]float64, len(models))
	var sum float64
	for i, m := range models {
		w, ok := weights[m.Name()]
		if !ok {
			w = 1
		}
		normalized[i] = w
		sum += w
	}
	if sum <= 0 {
		return nil, fmt.Errorf("ensemble weights sum to zero")
	}
	for i := range normalized {
		normalized[i] /= sum
	}

	return &Ensemble{
		models:   models,
		weights:  normalized,
		strategy: strategy,
		stacking: stacking,
		degraded: degraded,
	}, nil
}

// Classify runs every constituent and fuses the votes. A constituent
// prediction error fails the whole call; model input shape is validated
// at startup so this only fires on programming errors.
func (e *Ensemble) Classify(vec model.EncodedVector) (*Result, error) {
	preds := make([]model.Prediction, len(e.models))
	for i, m := range e.models {
		p, err := m.Predict(vec)
		if err != nil {
			return nil, fmt.Errorf("predict: %w", err)
		}
		preds[i] = p
	}

	res := &Result{
		Predictions: preds,
		Degraded:    e.degraded,
		AttackProb:  e.softAttackProb(preds),
	}

	switch e.strategy {
	case Majority:
		e.voteMajority(preds, res)
	case Weighted:
		e.voteWeighted(preds, res)
	case Soft:
		e.voteSoft(preds, res)
	case Stacking:
		if err := e.voteStacking(preds, res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// softAttackProb is the weight-blended attack probability, reported on
// every result regardless of strategy so downstream thresholds have a
// continuous score to work with.
func (e *Ensemble) softAttackProb(preds []model.Prediction) float64 {
	var p float64
	for i, pred := range preds {
		p += e.weights[i] * pred.Probs[1]
	}
	return p
}

func (e *Ensemble) voteMajority(preds []model.Prediction, res *Result) {
	var votes [2]int
	for _, p := range preds {
		votes[p.Label]++
	}
	switch {
	case votes[1] > votes[0]:
		res.Label = 1
	case votes[0] > votes[1]:
		res.Label = 0
	default:
		// Tie: the first model in priority order decides.
		res.Label = preds[0].Label
	}
	res.Confidence = float64(votes[res.Label]) / float64(len(preds))
}

func (e *Ensemble) voteWeighted(preds []model.Prediction, res *Result) {
	var mass [2]float64
	for i, p := range preds {
		mass[p.Label] += e.weights[i]
	}
	if mass[1] > mass[0] {
		res.Label = 1
	}
	res.Confidence = mass[res.Label]
}

func (e *Ensemble) voteSoft(preds []model.Prediction, res *Result) {
	var sum [2]float64
	for i, p := range preds {
		sum[0] += e.weights[i] * p.Probs[0]
		sum[1] += e.weights[i] * p.Probs[1]
	}
	if sum[1] > sum[0] {
		res.Label = 1
	}
	res.Confidence = sum[res.Label]
}

func (e *Ensemble) voteStacking(preds []model.Prediction, res *Result) error {
	p, err := e.stacking.Fuse(preds)
	if err != nil {
		return err
	}
	res.AttackProb = p
	if p >= 0.5 {
		res.Label = 1
		res.Confidence = p
	} else {
		res.Confidence = 1 - p
	}
	return nil
}
