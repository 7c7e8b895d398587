package probe

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/okian/fraudrisk/internal/domain/model"
	"github.com/okian/fraudrisk/internal/domain/scoring"
)

// scoreTolerance bounds |risk_score - 100*fraud_probability|. The two are
// rounded independently, so they can differ by at most half of 0.01 plus
// half of 0.0001*100.
const scoreTolerance = 0.01

// Sentinel kinds returned by Verify.
var (
	ErrOutOfRange   = errors.New("value out of range")
	ErrInconsistent = errors.New("inconsistent result")
)

// Verify checks that a result is internally consistent with the static
// decision policy.
func Verify(r model.RiskResult) error {
	switch {
	case math.IsNaN(r.FraudProbability) || r.FraudProbability < 0 || r.FraudProbability > 1:
		return fmt.Errorf("%w: fraud_probability %v", ErrOutOfRange, r.FraudProbability)
	case math.IsNaN(r.RiskScore) || r.RiskScore < 0 || r.RiskScore > 100:
		return fmt.Errorf("%w: risk_score %v", ErrOutOfRange, r.RiskScore)
	}

	if diff := math.Abs(r.RiskScore - 100*r.FraudProbability); diff > scoreTolerance+1e-9 {
		return fmt.Errorf("%w: risk_score %.2f differs from 100*fraud_probability %.2f by %.4f",
			ErrInconsistent, r.RiskScore, 100*r.FraudProbability, diff)
	}

	level, decision := scoring.DefaultPolicy.Classify(r.RiskScore)
	if r.RiskLevel != level {
		return fmt.Errorf("%w: risk_score %.2f should be %s, got %s", ErrInconsistent, r.RiskScore, level, r.RiskLevel)
	}
	if r.Decision != decision {
		return fmt.Errorf("%w: level %s should decide %q, got %q", ErrInconsistent, r.RiskLevel, decision, r.Decision)
	}
	return nil
}

// verifyOutcomes applies Verify to every answered outcome and fills stats.
func verifyOutcomes(outcomes []Outcome, stats *Stats) {
	stats.ByLevel = make(map[string]int)
	stats.ByArchetype = make(map[Archetype]int)

	var total time.Duration
	for i := range outcomes {
		o := &outcomes[i]
		stats.Submitted++
		stats.ByArchetype[o.Profile.Archetype]++
		total += o.Latency
		if o.Latency > stats.MaxLatency {
			stats.MaxLatency = o.Latency
		}
		if o.Result == nil {
			stats.Failed++
			continue
		}
		if err := Verify(*o.Result); err != nil {
			o.Problem = err.Error()
			stats.Inconsistent++
			continue
		}
		stats.Verified++
		stats.ByLevel[o.Result.RiskLevel.String()]++
	}
	if len(outcomes) > 0 {
		stats.AvgLatency = total / time.Duration(len(outcomes))
	}
}
