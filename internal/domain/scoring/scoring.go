// Package scoring turns a model feature vector into a fraud probability, a
// risk score and a risk tier.
package scoring

import (
	"errors"
	"math"
	"strconv"

	"github.com/okian/fraudrisk/internal/domain/model"
	"github.com/okian/fraudrisk/internal/domain/types"
)

// Decision policy thresholds on the 0-100 risk score. Tiers are half-open:
// [0, 30) Low, [30, 70) Medium, [70, 100] High.
const (
	MediumRiskThreshold = 30.0
	HighRiskThreshold   = 70.0
)

// Rounding applied to the published result.
const (
	ProbabilityDecimals = 4
	ScoreDecimals       = 2
	percentScale        = 100
	fraudClass          = 1
)

// ErrNotReady is returned when the scorer is built without a normalizer or
// classifier. The process cannot serve without both.
var ErrNotReady = errors.New("scorer not ready")

// Normalizer is a pre-fitted, deterministic rescaling of the feature vector.
type Normalizer interface {
	Transform(v model.FeatureVector) model.FeatureVector
}

// Classifier is a pre-trained binary model returning [P(legit), P(fraud)].
type Classifier interface {
	PredictProba(v model.FeatureVector) [2]float64
}

// NormalizerFunc adapts a function to Normalizer.
type NormalizerFunc func(model.FeatureVector) model.FeatureVector

// Transform calls f(v).
func (f NormalizerFunc) Transform(v model.FeatureVector) model.FeatureVector { return f(v) }

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(model.FeatureVector) [2]float64

// PredictProba calls f(v).
func (f ClassifierFunc) PredictProba(v model.FeatureVector) [2]float64 { return f(v) }

// Policy maps a risk score to a tier and decision.
type Policy struct {
	MediumThreshold float64
	HighThreshold   float64
}

// DefaultPolicy is the static production policy.
var DefaultPolicy = Policy{
	MediumThreshold: MediumRiskThreshold,
	HighThreshold:   HighRiskThreshold,
}

// Classify returns the tier for score and its bound decision.
func (p Policy) Classify(score float64) (types.RiskLevel, types.Decision) {
	var level types.RiskLevel
	switch {
	case score < p.MediumThreshold:
		level = types.RiskLow
	case score < p.HighThreshold:
		level = types.RiskMedium
	default:
		level = types.RiskHigh
	}
	return level, level.Decision()
}

// Assessment is a scored result plus pipeline diagnostics. The diagnostics
// never influence Result.
type Assessment struct {
	Result model.RiskResult

	// Normalized is the sanitized classifier input.
	Normalized model.FeatureVector
	// SanitizedFeatures counts normalized components that were not finite.
	SanitizedFeatures int
	// SanitizedProbability is set when the classifier output was not finite.
	SanitizedProbability bool
}

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithPolicy overrides the decision policy. Used by tests; production runs
// DefaultPolicy.
func WithPolicy(p Policy) Option {
	return func(s *Scorer) {
		s.policy = p
	}
}

// Scorer runs normalize -> sanitize -> predict -> sanitize -> classify.
// It holds only read-only collaborators and is safe for concurrent use as
// long as they are.
type Scorer struct {
	normalizer Normalizer
	classifier Classifier
	policy     Policy
}

// New builds a Scorer around a loaded normalizer and classifier.
func New(n Normalizer, c Classifier, opts ...Option) (*Scorer, error) {
	if n == nil || c == nil {
		return nil, ErrNotReady
	}
	s := &Scorer{
		normalizer: n,
		classifier: c,
		policy:     DefaultPolicy,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Policy returns the active decision policy.
func (s *Scorer) Policy() Policy { return s.policy }

// Score evaluates one feature vector. Non-finite intermediate values are
// clamped to zero, so the worst case is a zero probability, Low, Allow.
func (s *Scorer) Score(v model.FeatureVector) Assessment {
	var a Assessment

	a.Normalized = s.normalizer.Transform(v)
	for i, x := range a.Normalized {
		if !finite(x) {
			a.Normalized[i] = 0
			a.SanitizedFeatures++
		}
	}

	p := s.classifier.PredictProba(a.Normalized)[fraudClass]
	if !finite(p) {
		p = 0
		a.SanitizedProbability = true
	}

	score := Round(p*percentScale, ScoreDecimals)
	level, decision := s.policy.Classify(score)

	a.Result = model.RiskResult{
		FraudProbability: Round(p, ProbabilityDecimals),
		RiskScore:        score,
		RiskLevel:        level,
		Decision:         decision,
	}
	return a
}

// Round rounds x to the given number of decimal places using the exact
// binary value of x, with ties to even.
func Round(x float64, places int) float64 {
	if !finite(x) {
		return x
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', places, 64), 64)
	if err != nil {
		return x
	}
	return r
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
