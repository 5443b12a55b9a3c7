package validate

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/canarysec/canary-scanner/pkg/logg"
	"github.com/canarysec/canary-scanner/pkg/manip"

	"github.com/google/go-github/v29/github"
	"golang.org/x/oauth2"
)

// GitHubValidator checks a token against the GitHub /user endpoint,
// which is read-only and reveals nothing beyond the token's own owner.
type GitHubValidator struct {
	pacer   *Pacer
	baseURL string
	timeout time.Duration
	log     logg.Logg
}

var githubTokenRes = manip.NewRegexpSet([]*regexp.Regexp{
	regexp.MustCompile(`^ghp_[A-Za-z0-9]{36}$`),
	regexp.MustCompile(`^gho_[A-Za-z0-9]{32}$`),
	regexp.MustCompile(`^ghs_[A-Za-z0-9]{32}$`),
	regexp.MustCompile(`^github_pat_[A-Za-z0-9_]{10,}$`),
	regexp.MustCompile(`^[0-9a-f]{40}$`),
})

func NewGitHubValidator(log logg.Logg) *GitHubValidator {
	return &GitHubValidator{
		pacer:   NewPacer(1 * time.Second),
		timeout: 30 * time.Second,
		log:     log.WithPrefix("validate-github"),
	}
}

// SetBaseURL points the validator at an alternate API endpoint.
// The URL must end with a trailing slash.
func (v *GitHubValidator) SetBaseURL(baseURL string) {
	v.baseURL = baseURL
}

func (v *GitHubValidator) SecretType() string {
	return "github"
}

func (v *GitHubValidator) Validate(ctx context.Context, secretValue string, jobContext map[string]string) Result {
	start := time.Now()

	if !githubTokenRes.MatchAny(secretValue) {
		result := newResult(InvalidFormat, 1.0, map[string]interface{}{
			"reason": "value does not match any GitHub token format",
		})
		result.ErrorMessage = "value does not match any GitHub token format"
		return result
	}

	if err := v.pacer.Wait(ctx); err != nil {
		return errorResult(err.Error(), time.Since(start))
	}

	v.log.WithField("secret", manip.MaskValue(secretValue)).Debug("checking token against user endpoint")

	callCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	tc := oauth2.NewClient(callCtx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: secretValue}))
	client := github.NewClient(tc)
	if v.baseURL != "" {
		parsed, parseErr := url.Parse(v.baseURL)
		if parseErr != nil {
			return errorResult(parseErr.Error(), time.Since(start))
		}
		client.BaseURL = parsed
	}

	user, resp, err := client.Users.Get(callCtx, "")
	elapsed := time.Since(start)

	if err == nil {
		result := newResult(Active, 1.0, map[string]interface{}{
			"username": user.GetLogin(),
			"user_id":  user.GetID(),
			"service":  "GitHub API",
		})
		result.ServiceResponseTime = elapsed.Seconds()
		return result
	}

	if _, ok := err.(*github.RateLimitError); ok {
		result := newResult(RateLimited, 0.5, map[string]interface{}{
			"reason": "GitHub API rate limit exceeded",
		})
		result.ServiceResponseTime = elapsed.Seconds()
		return result
	}

	if resp != nil {
		switch resp.StatusCode {
		case 401:
			result := newResult(Inactive, 1.0, map[string]interface{}{
				"reason":      "invalid or expired token",
				"http_status": resp.StatusCode,
			})
			result.ServiceResponseTime = elapsed.Seconds()
			return result
		case 403:
			// Authenticated but not allowed to read the user resource;
			// the token itself works
			result := newResult(Active, 0.8, map[string]interface{}{
				"reason":      "token valid but insufficient permissions",
				"http_status": resp.StatusCode,
			})
			result.ServiceResponseTime = elapsed.Seconds()
			return result
		}
	}

	return errorResult(sanitizeError(err.Error(), secretValue), elapsed)
}

// sanitizeError masks any occurrence of the raw secret inside an error
// string before it can reach a log line or a stored job record.
func sanitizeError(message, secretValue string) string {
	if secretValue == "" {
		return message
	}
	return strings.Replace(message, secretValue, manip.MaskValue(secretValue), -1)
}
