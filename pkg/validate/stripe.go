package validate

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/canarysec/canary-scanner/pkg/logg"
	"github.com/canarysec/canary-scanner/pkg/manip"
)

const stripeAPIBase = "https://api.stripe.com"

// StripeValidator checks a key against the Stripe balance endpoint, a
// read-only call that any secret key is authorized for.
type StripeValidator struct {
	pacer   *Pacer
	baseURL string
	client  *http.Client
	log     logg.Logg
}

func NewStripeValidator(log logg.Logg) *StripeValidator {
	return &StripeValidator{
		pacer:   NewPacer(1 * time.Second),
		baseURL: stripeAPIBase,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log.WithPrefix("validate-stripe"),
	}
}

func (v *StripeValidator) SetBaseURL(baseURL string) {
	v.baseURL = strings.TrimRight(baseURL, "/")
}

func (v *StripeValidator) SecretType() string {
	return "stripe"
}

func (v *StripeValidator) Validate(ctx context.Context, secretValue string, jobContext map[string]string) Result {
	start := time.Now()

	if !strings.HasPrefix(secretValue, "sk_") && !strings.HasPrefix(secretValue, "rk_") {
		result := newResult(InvalidFormat, 1.0, map[string]interface{}{
			"reason": "value does not match Stripe secret key format",
		})
		result.ErrorMessage = "value does not match Stripe secret key format"
		return result
	}

	if err := v.pacer.Wait(ctx); err != nil {
		return errorResult(err.Error(), time.Since(start))
	}

	v.log.WithField("secret", manip.MaskValue(secretValue)).Debug("checking key against balance endpoint")

	callCtx, cancel := context.WithTimeout(ctx, v.client.Timeout)
	defer cancel()

	req, err := http.NewRequest("GET", v.baseURL+"/v1/balance", nil)
	if err != nil {
		return errorResult(err.Error(), time.Since(start))
	}
	req = req.WithContext(callCtx)
	req.Header.Set("Authorization", "Bearer "+secretValue)

	resp, err := v.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return errorResult(sanitizeError(err.Error(), secretValue), elapsed)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		keyType := "live"
		if strings.Contains(secretValue, "_test_") {
			keyType = "test"
		}
		result := newResult(Active, 1.0, map[string]interface{}{
			"key_type": keyType,
			"service":  "Stripe API",
		})
		result.ServiceResponseTime = elapsed.Seconds()
		return result
	case http.StatusUnauthorized:
		result := newResult(Inactive, 1.0, map[string]interface{}{
			"reason":      "invalid Stripe API key",
			"http_status": resp.StatusCode,
		})
		result.ServiceResponseTime = elapsed.Seconds()
		return result
	case http.StatusTooManyRequests:
		result := newResult(RateLimited, 0.5, map[string]interface{}{
			"reason": "Stripe API rate limit exceeded",
		})
		result.ServiceResponseTime = elapsed.Seconds()
		return result
	default:
		result := newResult(Error, 0, map[string]interface{}{
			"reason":      "unexpected API response",
			"http_status": resp.StatusCode,
		})
		result.ErrorMessage = resp.Status
		result.ServiceResponseTime = elapsed.Seconds()
		return result
	}
}
