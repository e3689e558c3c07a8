package feature

import (
	"fmt"

	"NetSentinel/internal/model"
)

// Encoder applies the training-time categorical vocabulary and z-score
// scaling parameters to a FeatureVector. All parameters come from model
// artifacts and are read-only after construction.
type Encoder struct {
	vocab       map[string]map[string]float64
	unknownCode float64
	means       []float64
	stds        []float64
}

// NewEncoder validates the artifact-supplied parameters against the
// schema. The scaling vectors must cover every schema field.
func NewEncoder(vocab map[string]map[string]float64, unknownCode float64, means, stds []float64) (*Encoder, error) {
	if len(means) != NumFields || len(stds) != NumFields {
		return nil, fmt.Errorf("scaler length %d/%d does not match schema length %d",
			len(means), len(stds), NumFields)
	}
	for _, f := range Fields {
		if f.Kind == Categorical {
			if _, ok := vocab[f.Name]; !ok {
				return nil, fmt.Errorf("encoder vocabulary missing field %q", f.Name)
			}
		}
	}
	return &Encoder{vocab: vocab, unknownCode: unknownCode, means: means, stds: stds}, nil
}

// Encode maps a FeatureVector to the model input space. Categorical
// values outside the vocabulary map to the reserved unknown code, and
// numeric fields the schema names but the vector cannot supply are
// imputed as zero before scaling. A field whose training-time standard
// deviation is zero encodes to zero.
func (e *Encoder) Encode(fv *model.FeatureVector) model.EncodedVector {
	out := make(model.EncodedVector, NumFields)
	for i, f := range Fields {
		var raw float64
		switch f.Kind {
		case Categorical:
			s, _ := stringValue(fv, f.Name)
			code, ok := e.vocab[f.Name][s]
			if !ok {
				code = e.unknownCode
			}
			raw = code
		default:
			raw, _ = numericValue(fv, f.Name)
		}
		if e.stds[i] == 0 {
			out[i] = 0
			continue
		}
		out[i] = (raw - e.means[i]) / e.stds[i]
	}
	return out
}
