package dispatch

import (
	"context"

	"github.com/canarysec/canary-scanner/pkg/errors"
	"github.com/canarysec/canary-scanner/pkg/jobstore"
	"github.com/canarysec/canary-scanner/pkg/logg"
	"github.com/canarysec/canary-scanner/pkg/validate"
)

// Worker pulls one job at a time off the queue, runs its validator and
// writes exactly one terminal state to the store. A validator blowing
// up fails the job, never the worker process.
type Worker struct {
	registry *validate.Registry
	store    *jobstore.Store
	queue    Queue
	log      logg.Logg
}

func NewWorker(registry *validate.Registry, store *jobstore.Store, queue Queue, log logg.Logg) *Worker {
	return &Worker{
		registry: registry,
		store:    store,
		queue:    queue,
		log:      log,
	}
}

// Run processes jobs until the queue closes or the context is done.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case jobID, ok := <-w.queue.Jobs():
			if !ok {
				return
			}
			w.Process(ctx, jobID)
		}
	}
}

// Process runs the validation for one job ID and records the outcome.
func (w *Worker) Process(ctx context.Context, jobID string) {
	log := w.log.WithField("jobID", jobID)

	job, err := w.store.Get(jobID)
	if err != nil {
		errors.ErrLog(log, err).Warn("unable to load queued job, dropping")
		return
	}

	if err = w.store.MarkInProgress(jobID); err != nil {
		// Another worker got here first
		errors.ErrLog(log, err).Warn("unable to claim job, dropping")
		return
	}

	result := w.runValidator(ctx, job, log)

	if result.Status == validate.Error {
		message := result.ErrorMessage
		if message == "" {
			message = "validation call failed"
		}
		if err = w.store.Fail(jobID, message); err != nil {
			errors.ErrLog(log, err).Error("unable to record failed job")
		}
		return
	}

	if err = w.store.Complete(jobID, &result); err != nil {
		errors.ErrLog(log, err).Error("unable to record completed job")
		return
	}

	log.WithField("status", string(result.Status)).Debug("job completed")
}

// runValidator executes the validator with panic containment. Any panic
// becomes an error result that fails the job with a message.
func (w *Worker) runValidator(ctx context.Context, job *jobstore.Job, log logg.Logg) (result validate.Result) {
	defer errors.CatchPanicDo(func(err error) {
		errors.ErrLog(log, err).Error("validator panicked")
		result = validate.Result{Status: validate.Error, ErrorMessage: err.Error()}
	})

	validator, err := w.registry.Get(job.SecretType)
	if err != nil {
		// Registry membership was checked at submission; losing it here
		// means the worker runs a different registry build
		result = validate.Result{Status: validate.Error, ErrorMessage: err.Error()}
		return
	}

	result = validator.Validate(ctx, job.SecretValue, job.Context)
	return
}
