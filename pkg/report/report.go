package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/canarysec/canary-scanner/pkg/errors"
	"github.com/canarysec/canary-scanner/pkg/filter"
	"github.com/canarysec/canary-scanner/pkg/scan"
	"github.com/canarysec/canary-scanner/pkg/validate"

	"github.com/hako/durafmt"
)

// Process exit codes at the CLI boundary.
const (
	ExitOK          = 0
	ExitFindings    = 1
	ExitError       = 2
	ExitInterrupted = 130
)

type (

	// FailOn is the urgency threshold that turns findings into a
	// failing exit code
	FailOn string

	// Report is the scan result payload consumed by the dashboard
	Report struct {
		Metadata Metadata         `json:"metadata"`
		Findings []FindingPayload `json:"findings"`
		ExitCode int              `json:"exit_code"`
	}

	Metadata struct {
		ScannerVersion       string           `json:"scanner_version"`
		Timestamp            time.Time        `json:"timestamp"`
		Target               string           `json:"target"`
		DurationSeconds      float64          `json:"duration_seconds"`
		Duration             string           `json:"duration"`
		FilesScanned         int64            `json:"files_scanned"`
		FilesSkipped         int64            `json:"files_skipped"`
		LinesScanned         int64            `json:"lines_scanned"`
		TotalFindings        int              `json:"total_findings"`
		FindingsChecked      int64            `json:"findings_checked"`
		FalsePositives       int64            `json:"false_positives"`
		FalsePositiveReasons map[string]int64 `json:"false_positive_reasons"`
		UrgencyCounts        map[string]int   `json:"urgency_counts"`
		Validation           ValidationStats  `json:"validation"`
	}

	// ValidationStats surfaces partial validation failure in the
	// output instead of hiding it
	ValidationStats struct {
		Requested int `json:"requested"`
		Active    int `json:"active"`
		Inactive  int `json:"inactive"`
		Errors    int `json:"errors"`
	}

	// FindingPayload is a finding plus its masked secret preview. The
	// raw secret appears only when verbose display was asked for.
	FindingPayload struct {
		scan.Finding
		MaskedSecret string `json:"masked_secret"`
		SecretValue  string `json:"secret_value,omitempty"`
	}

	Options struct {
		Version       string
		VerboseSecret bool
		FailOn        FailOn
	}
)

const (
	FailOnAny      FailOn = "any"
	FailOnCritical FailOn = "critical"
	FailOnHigh     FailOn = "high"
	FailOnMedium   FailOn = "medium"
)

func FailOns() []FailOn {
	return []FailOn{FailOnAny, FailOnCritical, FailOnHigh, FailOnMedium}
}

func (f FailOn) Valid() bool {
	for _, e := range FailOns() {
		if e == f {
			return true
		}
	}
	return false
}

func NewFailOn(value string) (result FailOn, err error) {
	result = FailOn(value)
	if !result.Valid() {
		err = errors.Errorv("invalid fail-on threshold", value)
	}
	return
}

// threshold is the minimum urgency that counts against the exit code.
// FailOnAny matches every non-false-positive finding.
func (f FailOn) matches(finding *scan.Finding) bool {
	if finding.IsFalsePositive {
		return false
	}

	switch f {
	case FailOnAny:
		return true
	case FailOnCritical:
		return finding.Urgency.AtLeast(scan.Critical)
	case FailOnHigh:
		return finding.Urgency.AtLeast(scan.High)
	case FailOnMedium:
		return finding.Urgency.AtLeast(scan.Medium)
	}

	return false
}

// Build assembles the result payload for a completed scan run.
func Build(run *scan.Run, filterStats *filter.Stats, opts Options) *Report {
	payloads := make([]FindingPayload, 0, len(run.Findings))
	urgencyCounts := map[string]int{}
	var validation ValidationStats

	for _, finding := range run.Findings {
		urgencyCounts[string(finding.Urgency)]++
		payload := FindingPayload{
			Finding:      *finding,
			MaskedSecret: finding.MaskedValue(),
		}
		if opts.VerboseSecret {
			payload.SecretValue = finding.SecretValue
		}
		payloads = append(payloads, payload)

		if finding.ValidationStatus != validate.Unvalidated {
			validation.Requested++
		}
		switch finding.ValidationStatus {
		case validate.Active:
			validation.Active++
		case validate.Inactive:
			validation.Inactive++
		case validate.Error:
			validation.Errors++
		}
	}

	duration := run.Stats.Duration()

	return &Report{
		Metadata: Metadata{
			ScannerVersion:       opts.Version,
			Timestamp:            time.Now().UTC(),
			Target:               run.Target,
			DurationSeconds:      duration.Seconds(),
			Duration:             durafmt.Parse(duration).LimitFirstN(2).String(),
			FilesScanned:         run.Stats.FilesScanned(),
			FilesSkipped:         run.Stats.FilesSkipped(),
			LinesScanned:         run.Stats.LinesScanned(),
			TotalFindings:        len(run.Findings),
			FindingsChecked:      filterStats.TotalChecked(),
			FalsePositives:       filterStats.FalsePositivesFound(),
			FalsePositiveReasons: filterStats.ReasonCounts(),
			UrgencyCounts:        urgencyCounts,
			Validation:           validation,
		},
		Findings: payloads,
		ExitCode: ExitCodeFor(run.Findings, opts.FailOn),
	}
}

// ExitCodeFor decides the process exit code from the surviving
// findings and the fail-on threshold.
func ExitCodeFor(findings []*scan.Finding, failOn FailOn) int {
	if !failOn.Valid() {
		failOn = FailOnAny
	}

	for _, finding := range findings {
		if failOn.matches(finding) {
			return ExitFindings
		}
	}

	return ExitOK
}

// WriteSummary prints the human-readable run summary.
func (r *Report) WriteSummary(w io.Writer) (err error) {
	m := r.Metadata

	if _, err = fmt.Fprintf(w,
		"scan of %s finished in %s\n"+
			"files scanned: %d (skipped %d), lines scanned: %d\n"+
			"findings: %d (checked %d, false positives filtered: %d)\n",
		m.Target, m.Duration,
		m.FilesScanned, m.FilesSkipped, m.LinesScanned,
		m.TotalFindings, m.FindingsChecked, m.FalsePositives); err != nil {
		err = errors.Wrap(err, "unable to write summary")
		return
	}

	if len(m.FalsePositiveReasons) > 0 {
		reasons := make([]string, 0, len(m.FalsePositiveReasons))
		for reason := range m.FalsePositiveReasons {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)

		parts := make([]string, len(reasons))
		for i, reason := range reasons {
			parts[i] = fmt.Sprintf("%s %d", reason, m.FalsePositiveReasons[reason])
		}
		if _, err = fmt.Fprintf(w, "false positive reasons: %s\n", strings.Join(parts, ", ")); err != nil {
			err = errors.Wrap(err, "unable to write summary")
			return
		}
	}

	_, err = fmt.Fprintf(w,
		"urgency: critical %d, high %d, medium %d, low %d\n"+
			"validation: requested %d, active %d, inactive %d, errors %d\n",
		m.UrgencyCounts[string(scan.Critical)], m.UrgencyCounts[string(scan.High)],
		m.UrgencyCounts[string(scan.Medium)], m.UrgencyCounts[string(scan.Low)],
		m.Validation.Requested, m.Validation.Active, m.Validation.Inactive, m.Validation.Errors)
	if err != nil {
		err = errors.Wrap(err, "unable to write summary")
	}
	return
}

func (r *Report) WriteJSON(w io.Writer) (err error) {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err = encoder.Encode(r); err != nil {
		err = errors.Wrap(err, "unable to encode report")
	}
	return
}
