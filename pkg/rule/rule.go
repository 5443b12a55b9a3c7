package rule

import (
	"regexp"
)

type (

	// Rule is a single secret detection rule. Rules are built once at
	// startup and shared read-only across scan workers.
	Rule struct {
		ID                string
		Description       string
		Pattern           *regexp.Regexp
		Confidence        Confidence
		EntropyThreshold  float64
		Keywords          []string
		SecretType        string
		ValidationEnabled bool
	}

	// Confidence is the prior belief that a rule match is a real secret
	Confidence string
)

const (
	High   Confidence = "High"
	Medium Confidence = "Medium"
	Low    Confidence = "Low"
)

func Confidences() []Confidence {
	return []Confidence{High, Medium, Low}
}

func (c Confidence) Valid() bool {
	for _, e := range Confidences() {
		if e == c {
			return true
		}
	}
	return false
}

func ValidConfidenceValues() (result []string) {
	confidences := Confidences()
	result = make([]string, len(confidences))
	for i := range confidences {
		result[i] = string(confidences[i])
	}
	return
}
