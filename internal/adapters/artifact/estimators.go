package artifact

import (
	"math"

	"github.com/okian/fraudrisk/internal/domain/model"
)

// StandardScaler standardizes each feature as (x - mean) / scale. A zero
// scale is kept as is; the resulting non-finite value is left for the scorer
// to clamp.
type StandardScaler struct {
	Mean  model.FeatureVector
	Scale model.FeatureVector
}

// Transform implements scoring.Normalizer.
func (s *StandardScaler) Transform(v model.FeatureVector) model.FeatureVector {
	var out model.FeatureVector
	for i, x := range v {
		out[i] = (x - s.Mean[i]) / s.Scale[i]
	}
	return out
}

// MinMaxScaler rescales each feature as x*scale + min.
type MinMaxScaler struct {
	Scale model.FeatureVector
	Min   model.FeatureVector
}

// Transform implements scoring.Normalizer.
func (s *MinMaxScaler) Transform(v model.FeatureVector) model.FeatureVector {
	var out model.FeatureVector
	for i, x := range v {
		out[i] = x*s.Scale[i] + s.Min[i]
	}
	return out
}

// LogisticRegression is a fitted binary logistic model.
type LogisticRegression struct {
	Coefficients model.FeatureVector
	Intercept    float64
}

// PredictProba implements scoring.Classifier, returning [P(0), P(1)].
func (m *LogisticRegression) PredictProba(v model.FeatureVector) [2]float64 {
	z := m.Intercept
	for i, x := range v {
		z += m.Coefficients[i] * x
	}
	p := 1 / (1 + math.Exp(-z))
	return [2]float64{1 - p, p}
}
