package jobstore

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/canarysec/canary-scanner/pkg/errors"
	"github.com/canarysec/canary-scanner/pkg/logg"
	"github.com/canarysec/canary-scanner/pkg/validate"

	scribble "github.com/nanobox-io/golang-scribble"
)

const jobCollection = "validation_jobs"

type (

	// JobStatus is the lifecycle state of a validation job
	JobStatus string

	// Job is one queued validation request. The store record is the
	// single source of truth for job state across processes; no
	// in-memory table survives a restart.
	Job struct {
		JobID        string            `json:"job_id"`
		SecretType   string            `json:"secret_type"`
		SecretValue  string            `json:"secret_value"`
		Context      map[string]string `json:"context,omitempty"`
		Status       JobStatus         `json:"status"`
		CreatedAt    time.Time         `json:"created_at"`
		CompletedAt  *time.Time        `json:"completed_at,omitempty"`
		Result       *validate.Result  `json:"result,omitempty"`
		ErrorMessage string            `json:"error_message,omitempty"`
	}

	// Store persists jobs as JSON documents on disk. Terminal jobs are
	// kept for a bounded TTL after completion, then lookups report not
	// found and the record is pruned.
	Store struct {
		driver *scribble.Driver
		ttl    time.Duration
		mutex  sync.Mutex
		log    logg.Logg
	}
)

const (
	StatusQueued     JobStatus = "queued"
	StatusInProgress JobStatus = "in_progress"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

func JobStatuses() []JobStatus {
	return []JobStatus{StatusQueued, StatusInProgress, StatusCompleted, StatusFailed}
}

func (s JobStatus) Valid() bool {
	for _, e := range JobStatuses() {
		if e == s {
			return true
		}
	}
	return false
}

func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

var errNotFound = errors.New("job not found")

func IsNotFound(err error) bool {
	return errors.Cause(err) == errNotFound
}

func NewStore(dir string, ttl time.Duration, log logg.Logg) (result *Store, err error) {
	var driver *scribble.Driver
	driver, err = scribble.New(dir, nil)
	if err != nil {
		err = errors.Wrapv(err, "unable to create job store in directory", dir)
		return
	}

	result = &Store{
		driver: driver,
		ttl:    ttl,
		log:    log,
	}
	return
}

// CreateJob persists a new queued job and returns it. Job IDs hash the
// secret type, value and submission time so resubmissions of the same
// secret get distinct jobs.
func (s *Store) CreateJob(secretType, secretValue string, jobContext map[string]string) (result *Job, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := time.Now().UTC()

	result = &Job{
		JobID:       createJobID(secretType, secretValue, now.UnixNano()),
		SecretType:  secretType,
		SecretValue: secretValue,
		Context:     jobContext,
		Status:      StatusQueued,
		CreatedAt:   now,
	}

	if err = s.driver.Write(jobCollection, result.JobID, result); err != nil {
		err = errors.Wrapv(err, "unable to persist job", result.JobID)
		result = nil
	}

	return
}

// Get returns the stored job, enforcing TTL at read time: a terminal
// job older than the TTL is pruned and reported as not found.
func (s *Store) Get(jobID string) (result *Job, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.get(jobID)
}

func (s *Store) get(jobID string) (result *Job, err error) {
	var job Job
	if readErr := s.driver.Read(jobCollection, jobID, &job); readErr != nil {
		if os.IsNotExist(errors.Cause(readErr)) {
			err = errNotFound
			return
		}
		err = errors.Wrapv(readErr, "unable to read job", jobID)
		return
	}

	if s.expired(&job) {
		if deleteErr := s.driver.Delete(jobCollection, jobID); deleteErr != nil {
			s.log.WithField("jobID", jobID).WithError(deleteErr).Warn("unable to prune expired job")
		}
		err = errNotFound
		return
	}

	result = &job
	return
}

// MarkInProgress transitions a queued job to in_progress. Transitions
// are one-directional; anything else is an error.
func (s *Store) MarkInProgress(jobID string) (err error) {
	return s.transition(jobID, StatusQueued, func(job *Job) {
		job.Status = StatusInProgress
	})
}

// Complete records the validation result and the terminal completed
// state in a single write.
func (s *Store) Complete(jobID string, result *validate.Result) (err error) {
	return s.transition(jobID, StatusInProgress, func(job *Job) {
		now := time.Now().UTC()
		job.Status = StatusCompleted
		job.CompletedAt = &now
		job.Result = result
	})
}

// Fail records the terminal failed state with an error message.
func (s *Store) Fail(jobID, message string) (err error) {
	return s.transition(jobID, StatusInProgress, func(job *Job) {
		now := time.Now().UTC()
		job.Status = StatusFailed
		job.CompletedAt = &now
		job.ErrorMessage = message
	})
}

func (s *Store) transition(jobID string, expected JobStatus, mutate func(job *Job)) (err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var job *Job
	job, err = s.get(jobID)
	if err != nil {
		return
	}

	if job.Status != expected {
		err = errors.Errorv("unexpected job status for transition", string(job.Status))
		return
	}

	mutate(job)

	if err = s.driver.Write(jobCollection, jobID, job); err != nil {
		err = errors.Wrapv(err, "unable to persist job transition", jobID)
	}

	return
}

// Delete removes a job record outright. Used to roll back a submission
// whose enqueue failed so no partial job is left behind.
func (s *Store) Delete(jobID string) (err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err = s.driver.Delete(jobCollection, jobID); err != nil {
		err = errors.Wrapv(err, "unable to delete job", jobID)
	}
	return
}

// QueuedJobIDs lists jobs still waiting for a worker, oldest first.
func (s *Store) QueuedJobIDs() (result []string, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var rows []string
	rows, err = s.driver.ReadAll(jobCollection)
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			err = nil
		} else {
			err = errors.Wrap(err, "unable to list jobs")
		}
		return
	}

	var queued []*Job
	for _, row := range rows {
		var job Job
		if unmarshalErr := unmarshalJob(row, &job); unmarshalErr != nil {
			s.log.WithError(unmarshalErr).Warn("skipping unreadable job record")
			continue
		}
		if job.Status == StatusQueued {
			jobCopy := job
			queued = append(queued, &jobCopy)
		}
	}

	sortJobsByCreation(queued)
	for _, job := range queued {
		result = append(result, job.JobID)
	}

	return
}

func (s *Store) expired(job *Job) bool {
	if s.ttl <= 0 || !job.Status.Terminal() || job.CompletedAt == nil {
		return false
	}
	return time.Since(*job.CompletedAt) > s.ttl
}

func unmarshalJob(row string, job *Job) error {
	return json.Unmarshal([]byte(row), job)
}

func sortJobsByCreation(jobs []*Job) {
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
}

func createJobID(firstInput interface{}, otherInputs ...interface{}) (result string) {
	str := fmt.Sprintf("%v", firstInput)
	for _, otherInput := range otherInputs {
		str += fmt.Sprintf("-%v", otherInput)
	}

	h := sha1.New()
	h.Write([]byte(str))
	result = fmt.Sprintf("%x", h.Sum(nil))

	return
}
