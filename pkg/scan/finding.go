package scan

import (
	"github.com/canarysec/canary-scanner/pkg/codectx"
	"github.com/canarysec/canary-scanner/pkg/manip"
	"github.com/canarysec/canary-scanner/pkg/rule"
	"github.com/canarysec/canary-scanner/pkg/validate"
)

type (

	// Urgency is the triage tier derived from a finding's risk score
	Urgency string

	// Finding is one regex match, enriched in place by the filter, risk
	// and validation stages. A scan run exclusively owns its findings.
	//
	// SecretValue and LineContent are excluded from JSON on purpose so a
	// raw secret can never leave the process through a marshalled
	// finding; the report layer emits a masked preview instead.
	Finding struct {
		RuleID              string              `json:"rule_id"`
		Description         string              `json:"description"`
		FilePath            string              `json:"file_path"`
		LineNumber          int                 `json:"line_number"`
		Confidence          rule.Confidence     `json:"confidence"`
		SecretValue         string              `json:"-"`
		LineContent         string              `json:"-"`
		EntropyScore        float64             `json:"entropy_score"`
		ContextType         codectx.ContextType `json:"context_type"`
		ContextConfidence   float64             `json:"context_confidence"`
		IsFalsePositive     bool                `json:"is_false_positive"`
		FalsePositiveReason string              `json:"false_positive_reason,omitempty"`
		RiskScore           float64             `json:"risk_score"`
		Urgency             Urgency             `json:"urgency"`
		ValidationStatus    validate.Status     `json:"validation_status"`
		ValidationJobID     string              `json:"validation_job_id,omitempty"`

		// Provenance, set when the scan target came from a repository
		CommitHash  string `json:"commit_hash,omitempty"`
		BranchName  string `json:"branch_name,omitempty"`
		AuthorEmail string `json:"author_email,omitempty"`
		SourceType  string `json:"source_type,omitempty"`
	}
)

const (
	Critical Urgency = "critical"
	High     Urgency = "high"
	Medium   Urgency = "medium"
	Low      Urgency = "low"
)

func Urgencies() []Urgency {
	return []Urgency{Critical, High, Medium, Low}
}

func (u Urgency) Valid() bool {
	for _, e := range Urgencies() {
		if e == u {
			return true
		}
	}
	return false
}

// AtLeast reports whether u is at or above the other urgency tier.
func (u Urgency) AtLeast(other Urgency) bool {
	return u.rank() >= other.rank()
}

func (u Urgency) rank() int {
	switch u {
	case Critical:
		return 4
	case High:
		return 3
	case Medium:
		return 2
	case Low:
		return 1
	}
	return 0
}

// MaskedValue is the only form of the secret safe for logs and reports.
func (f *Finding) MaskedValue() string {
	return manip.MaskValue(f.SecretValue)
}
