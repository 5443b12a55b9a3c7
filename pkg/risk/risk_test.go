package risk_test

import (
	"testing"

	. "github.com/canarysec/canary-scanner/pkg/risk"

	"github.com/canarysec/canary-scanner/pkg/codectx"
	"github.com/canarysec/canary-scanner/pkg/rule"
	"github.com/canarysec/canary-scanner/pkg/scan"
	"github.com/canarysec/canary-scanner/pkg/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseFinding() *scan.Finding {
	return &scan.Finding{
		Confidence:       rule.High,
		ContextType:      codectx.Production,
		EntropyScore:     3.0,
		ValidationStatus: validate.Unvalidated,
	}
}

func TestScoreHighConfidenceProduction(t *testing.T) {
	finding := baseFinding()

	// Fire
	riskScore, urgency := Score(finding)

	require.Equal(t, 8.0, riskScore)
	assert.Equal(t, scan.Critical, urgency)
}

func TestScoreContextDampening(t *testing.T) {
	cases := []struct {
		contextType codectx.ContextType
		expected    float64
	}{
		{codectx.Test, 2.4},
		{codectx.Example, 3.2},
		{codectx.Documentation, 4.0},
		{codectx.Config, 8.0},
		{codectx.Production, 8.0},
	}

	for _, c := range cases {
		finding := baseFinding()
		finding.ContextType = c.contextType

		riskScore, _ := Score(finding)

		assert.InDelta(t, c.expected, riskScore, 1e-9, string(c.contextType))
	}
}

func TestScoreEntropyBonus(t *testing.T) {
	finding := baseFinding()
	finding.Confidence = rule.Medium
	finding.EntropyScore = 4.5

	// Fire
	riskScore, urgency := Score(finding)

	require.Equal(t, 6.0, riskScore)
	assert.Equal(t, scan.High, urgency)
}

func TestScoreActiveValidationBoost(t *testing.T) {
	finding := baseFinding()
	finding.EntropyScore = 4.5
	finding.ValidationStatus = validate.Active

	// Fire
	riskScore, urgency := Score(finding)

	// 8.0 + 1.0 + 2.0 clamps to the ceiling
	require.Equal(t, 10.0, riskScore)
	assert.Equal(t, scan.Critical, urgency)
}

func TestScoreInactiveValidationCollapse(t *testing.T) {
	finding := baseFinding()
	finding.ValidationStatus = validate.Inactive

	// Fire
	riskScore, urgency := Score(finding)

	require.InDelta(t, 0.8, riskScore, 1e-9)
	assert.Equal(t, scan.Low, urgency)
}

func TestScoreOrderingContextBeforeEntropy(t *testing.T) {
	// The entropy bonus lands after dampening, so a test-context
	// finding keeps the full +1.0
	finding := baseFinding()
	finding.ContextType = codectx.Test
	finding.EntropyScore = 4.5

	riskScore, _ := Score(finding)

	require.InDelta(t, 3.4, riskScore, 1e-9)
}

func TestScoreAlwaysWithinBounds(t *testing.T) {
	for _, confidence := range rule.Confidences() {
		for _, contextType := range codectx.ContextTypes() {
			for _, status := range validate.Statuses() {
				finding := baseFinding()
				finding.Confidence = confidence
				finding.ContextType = contextType
				finding.ValidationStatus = status
				finding.EntropyScore = 5.0

				riskScore, urgency := Score(finding)

				require.True(t, riskScore >= 0.0 && riskScore <= 10.0)
				require.True(t, urgency.Valid())
				require.Equal(t, UrgencyFor(riskScore), urgency)
			}
		}
	}
}

func TestApplyWritesBack(t *testing.T) {
	finding := baseFinding()

	// Fire
	Apply(finding)

	assert.Equal(t, 8.0, finding.RiskScore)
	assert.Equal(t, scan.Critical, finding.Urgency)
}
