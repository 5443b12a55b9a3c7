package validate

import (
	"context"
	"time"
)

type (

	// Status is the outcome classification of a validation attempt
	Status string

	// Result is produced once per validator invocation and immutable after
	Result struct {
		Status              Status                 `json:"status"`
		Confidence          float64                `json:"confidence"`
		Details             map[string]interface{} `json:"details,omitempty"`
		ErrorMessage        string                 `json:"error_message,omitempty"`
		ValidatedAt         time.Time              `json:"validated_at"`
		ServiceResponseTime float64                `json:"service_response_time,omitempty"`
	}

	// Validator checks whether a leaked secret is live. Implementations
	// must be format-safe (malformed input returns InvalidFormat with no
	// network call) and must never log or expose the raw secret. Errors
	// are folded into the result status, never propagated as a failure.
	Validator interface {
		SecretType() string
		Validate(ctx context.Context, secretValue string, jobContext map[string]string) Result
	}
)

const (
	Unvalidated   Status = "unvalidated"
	Active        Status = "active"
	Inactive      Status = "inactive"
	Expired       Status = "expired"
	InvalidFormat Status = "invalid_format"
	RateLimited   Status = "rate_limited"
	Error         Status = "error"
	Unsupported   Status = "unsupported"
	Unknown       Status = "unknown"
)

func Statuses() []Status {
	return []Status{Unvalidated, Active, Inactive, Expired, InvalidFormat, RateLimited, Error, Unsupported, Unknown}
}

func (s Status) Valid() bool {
	for _, e := range Statuses() {
		if e == s {
			return true
		}
	}
	return false
}

// Completed reports whether the status represents a settled validation
// outcome, as opposed to a finding that was never validated.
func (s Status) Completed() bool {
	return s != Unvalidated && s != Unknown && s.Valid()
}

func newResult(status Status, confidence float64, details map[string]interface{}) Result {
	return Result{
		Status:      status,
		Confidence:  confidence,
		Details:     details,
		ValidatedAt: time.Now().UTC(),
	}
}

func errorResult(message string, elapsed time.Duration) Result {
	result := newResult(Error, 0, map[string]interface{}{"reason": "validation call failed"})
	result.ErrorMessage = message
	result.ServiceResponseTime = elapsed.Seconds()
	return result
}
