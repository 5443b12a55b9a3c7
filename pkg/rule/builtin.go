package rule

import (
	"regexp"
)

// Built-in rule set used when no rule file is configured. Covers the
// provider keys the validators understand plus a few generic shapes.
func Defaults() []*Rule {
	return []*Rule{
		{
			ID:                "aws-access-key-id",
			Description:       "AWS Access Key ID",
			Pattern:           regexp.MustCompile(`(?:AKIA|ASIA)[A-Z0-9]{16}`),
			Confidence:        High,
			SecretType:        "aws",
			ValidationEnabled: true,
		},
		{
			ID:                "github-token",
			Description:       "GitHub personal access or OAuth token",
			Pattern:           regexp.MustCompile(`(?:ghp|gho|ghs)_[A-Za-z0-9]{32,40}|github_pat_[A-Za-z0-9_]{20,}`),
			Confidence:        High,
			SecretType:        "github",
			ValidationEnabled: true,
		},
		{
			ID:                "stripe-secret-key",
			Description:       "Stripe secret API key",
			Pattern:           regexp.MustCompile(`sk_(?:live|test)_[A-Za-z0-9]{16,}`),
			Confidence:        High,
			SecretType:        "stripe",
			ValidationEnabled: true,
		},
		{
			ID:          "private-key-header",
			Description: "Private key material",
			Pattern:     regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`),
			Confidence:  High,
		},
		{
			ID:          "password-in-url",
			Description: "Password embedded in URL",
			Pattern:     regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9+.-]*://[^/\s:@]+:[^/\s:@]+@[^/\s]+`),
			Confidence:  Medium,
		},
		{
			ID:               "generic-api-key",
			Description:      "Generic API key assignment",
			Pattern:          regexp.MustCompile(`(?i)(?:api[_-]?key|api[_-]?secret|access[_-]?token)['"]?\s*[:=]\s*['"]([A-Za-z0-9_\-]{16,})['"]`),
			Confidence:       Medium,
			EntropyThreshold: 3.0,
			Keywords:         []string{"api_key", "apikey", "access_token"},
		},
	}
}
