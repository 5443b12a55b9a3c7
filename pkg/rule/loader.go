package rule

import (
	"io/ioutil"
	"regexp"

	"github.com/canarysec/canary-scanner/pkg/errors"
	"github.com/canarysec/canary-scanner/pkg/logg"

	"gopkg.in/yaml.v2"
)

type (
	ruleFile struct {
		Rules []ruleDef `yaml:"rules"`
	}
	ruleDef struct {
		RuleID            string   `yaml:"rule_id"`
		Description       string   `yaml:"description"`
		Regex             string   `yaml:"regex"`
		Confidence        string   `yaml:"confidence"`
		EntropyThreshold  float64  `yaml:"entropy_threshold"`
		Keywords          []string `yaml:"keywords"`
		SecretType        string   `yaml:"secret_type"`
		ValidationEnabled bool     `yaml:"validation_enabled"`
	}
)

// Load reads rule definitions from a YAML file. A rule that is missing a
// required field or carries a broken regex is skipped with a warning; an
// unreadable or unparsable file is an error since the scanner cannot run
// without its intended rule set.
func Load(path string, log logg.Logg) (result []*Rule, err error) {
	var raw []byte
	raw, err = ioutil.ReadFile(path)
	if err != nil {
		err = errors.Wrapv(err, "unable to read rule file", path)
		return
	}

	return Parse(raw, log)
}

// Parse builds rules from raw YAML rule definitions.
func Parse(raw []byte, log logg.Logg) (result []*Rule, err error) {
	var file ruleFile
	if err = yaml.Unmarshal(raw, &file); err != nil {
		err = errors.Wrap(err, "unable to parse rule definitions")
		return
	}

	for i, def := range file.Rules {
		defLog := log.WithField("ruleID", def.RuleID)

		var built *Rule
		var buildErr error
		built, buildErr = buildRule(def)
		if buildErr != nil {
			errors.ErrLog(defLog, buildErr).Warnf("skipping invalid rule definition %d", i)
			continue
		}

		result = append(result, built)
	}

	return
}

func buildRule(def ruleDef) (result *Rule, err error) {
	if def.RuleID == "" {
		err = errors.New("rule_id is required")
		return
	}
	if def.Description == "" {
		err = errors.New("description is required")
		return
	}
	if def.Regex == "" {
		err = errors.New("regex is required")
		return
	}

	confidence := Confidence(def.Confidence)
	if !confidence.Valid() {
		err = errors.Errorv("confidence must be one of", ValidConfidenceValues())
		return
	}

	var pattern *regexp.Regexp
	pattern, err = regexp.Compile(def.Regex)
	if err != nil {
		err = errors.Wrapv(err, "unable to compile rule regex", def.Regex)
		return
	}

	if def.EntropyThreshold < 0 {
		err = errors.Errorv("entropy_threshold cannot be negative", def.EntropyThreshold)
		return
	}

	result = &Rule{
		ID:                def.RuleID,
		Description:       def.Description,
		Pattern:           pattern,
		Confidence:        confidence,
		EntropyThreshold:  def.EntropyThreshold,
		Keywords:          def.Keywords,
		SecretType:        def.SecretType,
		ValidationEnabled: def.ValidationEnabled,
	}

	return
}
