package hybrid

import (
	"fmt"
	"math"

	"NetSentinel/internal/model"
)

// ZScoreDetector flags samples whose mean absolute z-distance from the
// training-time distribution exceeds a threshold. Parameters come from
// the anomaly artifact and are read-only after construction.
type ZScoreDetector struct {
	means     []float64
	stds      []float64
	threshold float64
}

func NewZScoreDetector(means, stds []float64, threshold float64) (*ZScoreDetector, error) {
	if len(means) != len(stds) {
		return nil, fmt.Errorf("anomaly detector: %d means vs %d stds", len(means), len(stds))
	}
	if len(means) == 0 {
		return nil, fmt.Errorf("anomaly detector: empty parameters")
	}
	if threshold <= 0 {
		return nil, fmt.Errorf("anomaly detector: threshold %v must be positive", threshold)
	}
	return &ZScoreDetector{means: means, stds: stds, threshold: threshold}, nil
}

// Score returns the mean absolute z-distance of the vector and whether
// it crosses the detector threshold. Fields with zero training variance
// do not contribute.
func (d *ZScoreDetector) Score(vec model.EncodedVector) (float64, bool) {
	n := len(vec)
	if n > len(d.means) {
		n = len(d.means)
	}
	var sum float64
	var counted int
	for i := 0; i < n; i++ {
		if d.stds[i] == 0 {
			continue
		}
		sum += math.Abs((vec[i] - d.means[i]) / d.stds[i])
		counted++
	}
	if counted == 0 {
		return 0, false
	}
	score := sum / float64(counted)
	return score, score > d.threshold
}
