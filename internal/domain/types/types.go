// Package types contains the risk tier and decision vocabulary shared across
// the application.
package types

import "fmt"

// RiskLevel is the tier a risk score falls into.
type RiskLevel string

// Risk tiers.
const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Decision is the recommended action for a risk tier.
type Decision string

// Decisions, bound one-to-one to the risk tiers.
const (
	DecisionAllow        Decision = "Allow"
	DecisionManualReview Decision = "Manual Review"
	DecisionFlagBlock    Decision = "Flag / Block"
)

// RiskLevels lists the tiers from lowest to highest.
var RiskLevels = []RiskLevel{RiskLow, RiskMedium, RiskHigh}

// ParseRiskLevel reconstructs a RiskLevel from its wire form.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch RiskLevel(s) {
	case RiskLow, RiskMedium, RiskHigh:
		return RiskLevel(s), nil
	default:
		return "", fmt.Errorf("invalid risk level: %q", s)
	}
}

// ParseDecision reconstructs a Decision from its wire form.
func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionAllow, DecisionManualReview, DecisionFlagBlock:
		return Decision(s), nil
	default:
		return "", fmt.Errorf("invalid decision: %q", s)
	}
}

// String returns the wire form.
func (r RiskLevel) String() string { return string(r) }

// Decision returns the action bound to the tier. Unknown tiers map to the
// empty decision.
func (r RiskLevel) Decision() Decision {
	switch r {
	case RiskLow:
		return DecisionAllow
	case RiskMedium:
		return DecisionManualReview
	case RiskHigh:
		return DecisionFlagBlock
	default:
		return ""
	}
}

// String returns the wire form.
func (d Decision) String() string { return string(d) }
