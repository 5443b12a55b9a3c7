package validate

import (
	"sort"

	"github.com/canarysec/canary-scanner/pkg/errors"
	"github.com/canarysec/canary-scanner/pkg/logg"
)

// Registry is the closed set of validators, keyed by secret type and
// populated once at startup. No runtime discovery: adding a secret type
// means adding a Validator implementation and one Register call.
type Registry struct {
	validators map[string]Validator
	log        logg.Logg
}

func NewRegistry(log logg.Logg) *Registry {
	return &Registry{
		validators: map[string]Validator{},
		log:        log,
	}
}

// NewDefaultRegistry builds the registry with the stock validators.
func NewDefaultRegistry(log logg.Logg) (result *Registry) {
	result = NewRegistry(log)
	result.Register(NewAWSValidator(log))
	result.Register(NewGitHubValidator(log))
	result.Register(NewStripeValidator(log))
	return
}

func (r *Registry) Register(validator Validator) {
	secretType := validator.SecretType()
	if _, ok := r.validators[secretType]; ok {
		r.log.WithField("secretType", secretType).Warn("replacing previously registered validator")
	}
	r.validators[secretType] = validator
}

func (r *Registry) Get(secretType string) (result Validator, err error) {
	var ok bool
	result, ok = r.validators[secretType]
	if !ok {
		err = errors.Errorv("no validator registered for secret type", secretType)
	}
	return
}

func (r *Registry) Supports(secretType string) bool {
	_, ok := r.validators[secretType]
	return ok
}

func (r *Registry) SecretTypes() (result []string) {
	for secretType := range r.validators {
		result = append(result, secretType)
	}
	sort.Strings(result)
	return
}
