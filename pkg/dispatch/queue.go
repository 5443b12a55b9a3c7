package dispatch

import (
	"sync"

	"github.com/canarysec/canary-scanner/pkg/errors"
)

type (

	// Queue hands job IDs from submitters to workers. The job payload
	// itself lives in the job store; the queue only carries IDs.
	Queue interface {
		Enqueue(jobID string) error
		Jobs() <-chan string
		Close()
	}

	// MemoryQueue is the in-process Queue, a bounded channel. Enqueue
	// never blocks: a full or closed queue fails the submission instead
	// of stalling the caller.
	MemoryQueue struct {
		ch     chan string
		mutex  sync.Mutex
		closed bool
	}
)

func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &MemoryQueue{ch: make(chan string, capacity)}
}

func (q *MemoryQueue) Enqueue(jobID string) (err error) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if q.closed {
		return errors.New("queue is closed")
	}

	select {
	case q.ch <- jobID:
	default:
		err = errors.New("queue is full")
	}

	return
}

func (q *MemoryQueue) Jobs() <-chan string {
	return q.ch
}

func (q *MemoryQueue) Close() {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}
