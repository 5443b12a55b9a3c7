package validate

import (
	"context"
	"sync"
	"time"
)

// Pacer enforces a minimum delay between consecutive outbound calls for
// one validator instance. Validators of different secret types do not
// share a pacer, so concurrent validations across types are not mutually
// throttled.
type Pacer struct {
	minDelay time.Duration
	last     time.Time
	mutex    sync.Mutex
}

func NewPacer(minDelay time.Duration) *Pacer {
	return &Pacer{minDelay: minDelay}
}

// Wait blocks until the minimum delay since the previous call has
// elapsed, then claims the new call slot. Returns early with the context
// error if the context is cancelled while waiting.
func (p *Pacer) Wait(ctx context.Context) (err error) {
	p.mutex.Lock()
	now := time.Now()
	nextAllowed := p.last.Add(p.minDelay)
	if nextAllowed.Before(now) {
		nextAllowed = now
	}
	p.last = nextAllowed
	p.mutex.Unlock()

	wait := nextAllowed.Sub(now)
	if wait <= 0 {
		return
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		err = ctx.Err()
	}

	return
}
