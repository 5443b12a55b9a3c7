package risk

import (
	"github.com/canarysec/canary-scanner/pkg/codectx"
	"github.com/canarysec/canary-scanner/pkg/rule"
	"github.com/canarysec/canary-scanner/pkg/scan"
	"github.com/canarysec/canary-scanner/pkg/validate"
)

// Score derives a risk score and urgency tier for a finding. The stages
// are ordered: base confidence, then context dampening, then entropy
// bonus, then validation adjustment. Later multipliers operate on the
// output of earlier stages, so the order is load-bearing.
func Score(finding *scan.Finding) (riskScore float64, urgency scan.Urgency) {
	riskScore = baseScore(finding.Confidence)
	riskScore *= contextMultiplier(finding.ContextType)

	if finding.EntropyScore > 4.0 {
		riskScore += 1.0
	}

	switch finding.ValidationStatus {
	case validate.Active:
		riskScore += 2.0
	case validate.Inactive:
		riskScore *= 0.1
	}

	riskScore = clamp(riskScore)
	urgency = UrgencyFor(riskScore)
	return
}

// Apply scores the finding and writes the result back onto it.
func Apply(finding *scan.Finding) {
	finding.RiskScore, finding.Urgency = Score(finding)
}

func UrgencyFor(riskScore float64) scan.Urgency {
	switch {
	case riskScore >= 8.0:
		return scan.Critical
	case riskScore >= 6.0:
		return scan.High
	case riskScore >= 3.0:
		return scan.Medium
	default:
		return scan.Low
	}
}

func baseScore(confidence rule.Confidence) float64 {
	switch confidence {
	case rule.High:
		return 8.0
	case rule.Medium:
		return 5.0
	case rule.Low:
		return 2.0
	}
	return 0.0
}

// Blast radius depends on whether the secret is reachable in production
func contextMultiplier(contextType codectx.ContextType) float64 {
	switch contextType {
	case codectx.Test:
		return 0.3
	case codectx.Example:
		return 0.4
	case codectx.Documentation:
		return 0.5
	}
	return 1.0
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}
