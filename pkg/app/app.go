package app

import (
	"context"
	"os"
	"sync"

	"github.com/canarysec/canary-scanner/pkg/app/vars"
	"github.com/canarysec/canary-scanner/pkg/codectx"
	"github.com/canarysec/canary-scanner/pkg/dispatch"
	"github.com/canarysec/canary-scanner/pkg/errors"
	"github.com/canarysec/canary-scanner/pkg/filter"
	interactpkg "github.com/canarysec/canary-scanner/pkg/interact"
	"github.com/canarysec/canary-scanner/pkg/interact/progress"
	"github.com/canarysec/canary-scanner/pkg/jobstore"
	"github.com/canarysec/canary-scanner/pkg/logg"
	"github.com/canarysec/canary-scanner/pkg/report"
	"github.com/canarysec/canary-scanner/pkg/rule"
	"github.com/canarysec/canary-scanner/pkg/scan"
	"github.com/canarysec/canary-scanner/pkg/service"
	"github.com/canarysec/canary-scanner/pkg/validate"
)

// App wires the configured components together for the CLI commands.
type App struct {
	cfg       *Config
	logWriter progress.LogWriter
	log       logg.Logg
}

func New(cfg *Config, logWriter progress.LogWriter, log logg.Logg) *App {
	return &App{
		cfg:       cfg,
		logWriter: logWriter,
		log:       log,
	}
}

// Scan runs the full pipeline against the configured target and writes
// the report. The returned exit code follows the fail-on threshold.
func (a *App) Scan(ctx context.Context) (exitCode int, err error) {
	exitCode = report.ExitError

	var rules []*rule.Rule
	if rules, err = a.loadRules(); err != nil {
		return
	}

	interact := a.newInteract()
	scanner := scan.NewScanner(rules, codectx.NewAnalyzer(), a.cfg.Scan.WorkerCount, interact, a.log)

	fpFilter := filter.New(a.log)
	fpFilter.AddKnownValues(a.cfg.Scan.KnownTestValues...)
	if err = fpFilter.AddPlaceholderPatterns(a.cfg.Scan.PlaceholderPatterns...); err != nil {
		return
	}

	backend, registry, stopBackend, err := a.buildBackend(ctx)
	if err != nil {
		return
	}
	if stopBackend != nil {
		defer stopBackend()
	}

	pipeline := NewPipeline(scanner, fpFilter, backend, registry, PipelineOptions{
		ContextFilter:         a.cfg.Scan.ContextFilter,
		IncludeFalsePositives: a.cfg.Scan.IncludeFalsePositives,
		PollInterval:          a.cfg.Validation.PollInterval,
		Timeout:               a.cfg.Validation.Timeout,
	}, interact, a.log)

	var run *scan.Run
	if run, err = pipeline.Run(ctx, a.cfg.Scan.Target, a.provenance()); err != nil {
		return
	}

	result := report.Build(run, pipeline.FilterStats(), report.Options{
		Version:       vars.Version,
		VerboseSecret: a.cfg.Scan.VerboseSecretDisplay,
		FailOn:        report.FailOn(a.cfg.Scan.FailOn),
	})

	if err = a.writeReport(result); err != nil {
		return
	}

	a.log.WithField("findings", len(run.Findings)).
		WithField("files", run.Stats.FilesScanned()).
		Info("scan complete")

	exitCode = result.ExitCode
	return
}

// Serve runs the validation service until the context is cancelled.
// Jobs left queued by an earlier run are picked up again on startup.
func (a *App) Serve(ctx context.Context) (err error) {
	var store *jobstore.Store
	if store, err = jobstore.NewStore(a.cfg.Validation.JobStoreDir, a.cfg.Validation.JobTTL, a.log); err != nil {
		return
	}

	registry := validate.NewDefaultRegistry(a.log)
	queue := dispatch.NewMemoryQueue(a.cfg.Validation.QueueSize)
	dispatcher := dispatch.NewDispatcher(registry, store, queue, a.log)

	if err = requeuePending(store, queue, a.log); err != nil {
		return
	}

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()
	var wg sync.WaitGroup
	for i := 0; i < a.cfg.Validation.WorkerCount; i++ {
		worker := dispatch.NewWorker(registry, store, queue, a.log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(workerCtx)
		}()
	}

	server := service.NewServer(a.cfg.Service.APIKey, vars.Version, dispatcher, a.log)
	err = server.ListenAndServe(ctx, a.cfg.Service.BindAddress)

	cancelWorkers()
	queue.Close()
	wg.Wait()

	return
}

// RunWorker processes the persisted validation backlog and exits when
// it is drained. Useful after a service crash left jobs queued.
func (a *App) RunWorker(ctx context.Context) (err error) {
	var store *jobstore.Store
	if store, err = jobstore.NewStore(a.cfg.Validation.JobStoreDir, a.cfg.Validation.JobTTL, a.log); err != nil {
		return
	}

	var jobIDs []string
	if jobIDs, err = store.QueuedJobIDs(); err != nil {
		err = errors.WithMessage(err, "unable to list queued jobs")
		return
	}
	if len(jobIDs) == 0 {
		a.log.Info("no queued validation jobs")
		return
	}

	registry := validate.NewDefaultRegistry(a.log)
	queue := dispatch.NewMemoryQueue(len(jobIDs))
	for _, jobID := range jobIDs {
		if enqueueErr := queue.Enqueue(jobID); enqueueErr != nil {
			errors.ErrLog(a.log, enqueueErr).WithField("job", jobID).Warn("unable to requeue job")
		}
	}
	queue.Close()

	a.log.WithField("count", len(jobIDs)).Info("processing queued validation jobs")

	var wg sync.WaitGroup
	for i := 0; i < a.cfg.Validation.WorkerCount; i++ {
		worker := dispatch.NewWorker(registry, store, queue, a.log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(ctx)
		}()
	}
	wg.Wait()

	return
}

func (a *App) loadRules() (result []*rule.Rule, err error) {
	if a.cfg.Scan.RuleFile == "" {
		result = rule.Defaults()
		a.log.WithField("rules", len(result)).Debug("using built-in rules")
		return
	}

	if result, err = rule.Load(a.cfg.Scan.RuleFile, a.log); err != nil {
		err = errors.WithMessagev(err, "unable to load rules", a.cfg.Scan.RuleFile)
	}
	return
}

func (a *App) newInteract() interactpkg.Interactish {
	if a.cfg.NonInteractive || a.logWriter == nil {
		return &interactpkg.Dummy{}
	}
	return interactpkg.New(true, a.logWriter)
}

func (a *App) provenance() scan.Provenance {
	return scan.Provenance{
		SourceType:  a.cfg.Scan.SourceType,
		CommitHash:  a.cfg.Scan.CommitHash,
		BranchName:  a.cfg.Scan.BranchName,
		AuthorEmail: a.cfg.Scan.AuthorEmail,
	}
}

// buildBackend picks the validation backend from config. Remote wins
// when a service URL is set, otherwise the dispatcher runs in-process
// with its own worker goroutines.
func (a *App) buildBackend(ctx context.Context) (backend ValidationBackend, registry *validate.Registry,
	stop func(), err error) {

	if !a.cfg.Validation.Enabled {
		return
	}

	if a.cfg.Validation.ServiceURL != "" {
		client := service.NewClient(a.cfg.Validation.ServiceURL, a.cfg.Validation.APIKey, a.log)
		if err = client.Health(); err != nil {
			err = errors.WithMessagev(err, "validation service is unreachable", a.cfg.Validation.ServiceURL)
			return
		}
		backend = NewRemoteBackend(client)
		return
	}

	var store *jobstore.Store
	if store, err = jobstore.NewStore(a.cfg.Validation.JobStoreDir, a.cfg.Validation.JobTTL, a.log); err != nil {
		return
	}

	registry = validate.NewDefaultRegistry(a.log)
	queue := dispatch.NewMemoryQueue(a.cfg.Validation.QueueSize)
	backend = NewLocalBackend(dispatch.NewDispatcher(registry, store, queue, a.log))

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	var wg sync.WaitGroup
	for i := 0; i < a.cfg.Validation.WorkerCount; i++ {
		worker := dispatch.NewWorker(registry, store, queue, a.log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(workerCtx)
		}()
	}

	stop = func() {
		cancelWorkers()
		queue.Close()
		wg.Wait()
	}

	return
}

// requeuePending puts jobs that never reached a worker back on the
// queue.
func requeuePending(store *jobstore.Store, queue dispatch.Queue, log logg.Logg) (err error) {
	var jobIDs []string
	if jobIDs, err = store.QueuedJobIDs(); err != nil {
		err = errors.WithMessage(err, "unable to list queued jobs")
		return
	}

	for _, jobID := range jobIDs {
		if enqueueErr := queue.Enqueue(jobID); enqueueErr != nil {
			errors.ErrLog(log, enqueueErr).WithField("job", jobID).Warn("unable to requeue job")
		}
	}

	if len(jobIDs) > 0 {
		log.WithField("count", len(jobIDs)).Info("requeued pending validation jobs")
	}

	return
}

// writeReport emits the payload. JSON goes to the output file when one
// is configured, to stdout with output-json; otherwise stdout gets the
// console summary.
func (a *App) writeReport(result *report.Report) (err error) {
	if a.cfg.OutputFile != "" {
		var file *os.File
		if file, err = os.Create(a.cfg.OutputFile); err != nil {
			err = errors.Wrapv(err, "unable to create output file", a.cfg.OutputFile)
			return
		}
		defer file.Close()

		if err = result.WriteJSON(file); err != nil {
			err = errors.WithMessagev(err, "unable to write report", a.cfg.OutputFile)
			return
		}
		return result.WriteSummary(os.Stdout)
	}

	if a.cfg.OutputJSON {
		return result.WriteJSON(os.Stdout)
	}

	return result.WriteSummary(os.Stdout)
}
