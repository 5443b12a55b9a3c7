package dispatch

import (
	"github.com/canarysec/canary-scanner/pkg/errors"
	"github.com/canarysec/canary-scanner/pkg/jobstore"
	"github.com/canarysec/canary-scanner/pkg/logg"
	"github.com/canarysec/canary-scanner/pkg/manip"
	"github.com/canarysec/canary-scanner/pkg/validate"
)

// Dispatcher is the submission boundary of the validation subsystem.
// Submissions are rejected synchronously, with no side effects, when
// the secret type has no registered validator or the queue cannot take
// the job.
type Dispatcher struct {
	registry *validate.Registry
	store    *jobstore.Store
	queue    Queue
	log      logg.Logg
}

func NewDispatcher(registry *validate.Registry, store *jobstore.Store, queue Queue, log logg.Logg) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		store:    store,
		queue:    queue,
		log:      log,
	}
}

// Submit creates a queued job and hands its ID to the queue. An enqueue
// failure rolls the job record back so no partial job exists.
func (d *Dispatcher) Submit(secretType, secretValue string, jobContext map[string]string) (jobID string, err error) {
	if !d.registry.Supports(secretType) {
		err = errors.Errorv("no validator registered for secret type", secretType)
		return
	}

	var job *jobstore.Job
	job, err = d.store.CreateJob(secretType, secretValue, jobContext)
	if err != nil {
		err = errors.WithMessage(err, "unable to create validation job")
		return
	}

	if err = d.queue.Enqueue(job.JobID); err != nil {
		if deleteErr := d.store.Delete(job.JobID); deleteErr != nil {
			d.log.WithField("jobID", job.JobID).WithError(deleteErr).Warn("unable to roll back unqueued job")
		}
		err = errors.WithMessage(err, "unable to enqueue validation job")
		return
	}

	d.log.WithFields(logg.Fields{
		"jobID":      job.JobID,
		"secretType": secretType,
		"secret":     manip.MaskValue(secretValue),
	}).Debug("validation job submitted")

	jobID = job.JobID
	return
}

// Status reads the job record. Expired and unknown job IDs both come
// back as not found.
func (d *Dispatcher) Status(jobID string) (result *jobstore.Job, err error) {
	return d.store.Get(jobID)
}
