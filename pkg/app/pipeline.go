package app

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/canarysec/canary-scanner/pkg/codectx"
	"github.com/canarysec/canary-scanner/pkg/dispatch"
	"github.com/canarysec/canary-scanner/pkg/errors"
	"github.com/canarysec/canary-scanner/pkg/filter"
	interactpkg "github.com/canarysec/canary-scanner/pkg/interact"
	"github.com/canarysec/canary-scanner/pkg/jobstore"
	"github.com/canarysec/canary-scanner/pkg/logg"
	"github.com/canarysec/canary-scanner/pkg/manip"
	"github.com/canarysec/canary-scanner/pkg/risk"
	"github.com/canarysec/canary-scanner/pkg/rule"
	"github.com/canarysec/canary-scanner/pkg/scan"
	"github.com/canarysec/canary-scanner/pkg/service"
	"github.com/canarysec/canary-scanner/pkg/validate"
)

type (

	// Pipeline runs a scan end to end: detect, filter, score, then
	// validate eligible findings and re-score them with the outcome.
	Pipeline struct {
		scanner               *scan.Scanner
		fpFilter              *filter.FalsePositiveFilter
		backend               ValidationBackend
		registry              *validate.Registry
		rulesByID             map[string]*rule.Rule
		contextFilter         *manip.BasicSet
		includeFalsePositives bool
		pollInterval          time.Duration
		timeout               time.Duration
		interact              interactpkg.Interactish
		log                   logg.Logg
	}

	PipelineOptions struct {
		ContextFilter         []string
		IncludeFalsePositives bool
		PollInterval          time.Duration
		Timeout               time.Duration
	}

	// ValidationBackend abstracts where validation jobs run. The local
	// backend drives the in-process dispatcher, the remote one talks to
	// a validation service over HTTP.
	ValidationBackend interface {
		Submit(secretType, secretValue string, jobContext map[string]string) (jobID string, err error)
		Status(jobID string) (status jobstore.JobStatus, result *validate.Result, errMessage string, err error)
	}

	localBackend struct {
		dispatcher *dispatch.Dispatcher
	}

	remoteBackend struct {
		client *service.Client
	}
)

func NewLocalBackend(dispatcher *dispatch.Dispatcher) ValidationBackend {
	return &localBackend{dispatcher: dispatcher}
}

func NewRemoteBackend(client *service.Client) ValidationBackend {
	return &remoteBackend{client: client}
}

func (b *localBackend) Submit(secretType, secretValue string, jobContext map[string]string) (string, error) {
	return b.dispatcher.Submit(secretType, secretValue, jobContext)
}

func (b *localBackend) Status(jobID string) (status jobstore.JobStatus, result *validate.Result, errMessage string, err error) {
	var job *jobstore.Job
	if job, err = b.dispatcher.Status(jobID); err != nil {
		return
	}
	status = job.Status
	result = job.Result
	errMessage = job.ErrorMessage
	return
}

func (b *remoteBackend) Submit(secretType, secretValue string, jobContext map[string]string) (string, error) {
	return b.client.Submit(secretType, secretValue, jobContext)
}

func (b *remoteBackend) Status(jobID string) (status jobstore.JobStatus, result *validate.Result, errMessage string, err error) {
	var resp *service.StatusResponse
	if resp, err = b.client.Status(jobID); err != nil {
		return
	}
	status = jobstore.JobStatus(resp.Status)
	result = resp.Result
	errMessage = resp.ErrorMessage
	return
}

// NewPipeline builds a pipeline. Pass a nil backend to skip validation
// entirely.
func NewPipeline(scanner *scan.Scanner, fpFilter *filter.FalsePositiveFilter, backend ValidationBackend,
	registry *validate.Registry, opts PipelineOptions, interact interactpkg.Interactish, log logg.Logg) *Pipeline {

	rulesByID := map[string]*rule.Rule{}
	for _, r := range scanner.Rules() {
		rulesByID[r.ID] = r
	}

	var contextFilter *manip.BasicSet
	if len(opts.ContextFilter) > 0 {
		contextFilter = manip.NewBasicSet(opts.ContextFilter)
	}

	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 250 * time.Millisecond
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Pipeline{
		scanner:               scanner,
		fpFilter:              fpFilter,
		backend:               backend,
		registry:              registry,
		rulesByID:             rulesByID,
		contextFilter:         contextFilter,
		includeFalsePositives: opts.IncludeFalsePositives,
		pollInterval:          pollInterval,
		timeout:               timeout,
		interact:              interact,
		log:                   log,
	}
}

func (p *Pipeline) Run(ctx context.Context, target string, prov scan.Provenance) (result *scan.Run, err error) {
	var run *scan.Run
	if run, err = p.scanner.Scan(target, prov); err != nil {
		err = errors.WithMessagev(err, "scan failed", target)
		return
	}

	findings := p.filterStage(run.Findings)

	for _, finding := range findings {
		risk.Apply(finding)
	}

	if p.backend != nil {
		submitted := p.submitStage(findings)
		if len(submitted) > 0 {
			p.interact.SpinWhile("waiting for validation results", func() {
				p.awaitStage(ctx, submitted)
			})

			// Validation outcomes shift the risk picture
			for _, finding := range submitted {
				risk.Apply(finding)
			}
		}
	}

	run.Findings = findings
	result = run
	return
}

func (p *Pipeline) FilterStats() *filter.Stats {
	return p.fpFilter.Stats()
}

// filterStage drops false positives and filtered context types. Checked
// findings keep their false positive marking either way so the report
// can show what was suppressed.
func (p *Pipeline) filterStage(findings []*scan.Finding) (result []*scan.Finding) {
	result = make([]*scan.Finding, 0, len(findings))

	for _, finding := range findings {
		isFP := p.fpFilter.Check(finding)
		if isFP && !p.includeFalsePositives {
			continue
		}
		if p.contextFilter != nil && p.contextFilter.Contains(string(finding.ContextType)) {
			continue
		}
		result = append(result, finding)
	}

	return
}

// submitStage queues validation for each eligible finding. A rejected
// submission degrades just that finding, never the run.
func (p *Pipeline) submitStage(findings []*scan.Finding) (submitted []*scan.Finding) {
	for _, finding := range findings {
		matched := p.rulesByID[finding.RuleID]
		if !eligibleForValidation(finding, matched) {
			continue
		}

		if p.registry != nil && !p.registry.Supports(matched.SecretType) {
			finding.ValidationStatus = validate.Unsupported
			continue
		}

		jobID, err := p.backend.Submit(matched.SecretType, finding.SecretValue, map[string]string{
			"file_path":   finding.FilePath,
			"line_number": strconv.Itoa(finding.LineNumber),
			"rule_id":     finding.RuleID,
		})
		if err != nil {
			errors.ErrLog(p.log, err).WithField("rule", finding.RuleID).
				Warn("validation submission rejected")
			finding.ValidationStatus = validate.Error
			continue
		}

		finding.ValidationJobID = jobID
		submitted = append(submitted, finding)
	}

	return
}

// awaitStage polls every submitted job to a terminal state. Each
// finding fails independently; a lost job only degrades its own
// validation status.
func (p *Pipeline) awaitStage(ctx context.Context, submitted []*scan.Finding) {
	deadline, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, finding := range submitted {
		wg.Add(1)
		go func(finding *scan.Finding) {
			defer wg.Done()
			finding.ValidationStatus = p.awaitJob(deadline, finding.ValidationJobID)
		}(finding)
	}
	wg.Wait()
}

func (p *Pipeline) awaitJob(ctx context.Context, jobID string) validate.Status {
	log := p.log.WithField("job", jobID)

	for {
		status, result, errMessage, err := p.backend.Status(jobID)
		switch {
		case err != nil:
			errors.ErrLog(log, err).Warn("unable to read validation job status")
			return validate.Error
		case status == jobstore.StatusCompleted:
			if result == nil {
				return validate.Error
			}
			return result.Status
		case status == jobstore.StatusFailed:
			log.WithField("message", errMessage).Debug("validation job failed")
			return validate.Error
		}

		select {
		case <-ctx.Done():
			log.Warn("timed out waiting for validation job")
			return validate.Error
		case <-time.After(p.pollInterval):
		}
	}
}

// eligibleForValidation limits validation to findings worth the API
// call: high confidence matches outside test and example code, from
// rules that opted in.
func eligibleForValidation(finding *scan.Finding, matched *rule.Rule) bool {
	if matched == nil || !matched.ValidationEnabled || matched.SecretType == "" {
		return false
	}
	if finding.IsFalsePositive {
		return false
	}
	if finding.Confidence != rule.High {
		return false
	}
	if finding.ContextType == codectx.Test || finding.ContextType == codectx.Example {
		return false
	}
	return true
}
