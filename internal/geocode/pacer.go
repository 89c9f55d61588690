package geocode

import (
	"context"
	"sync"
	"time"
)

// Pacer keeps at least interval between the end of one call and the start
// of the next. Callers pair every successful Wait with Done.
type Pacer struct {
	interval time.Duration
	mu       sync.Mutex
	last     time.Time // start of the last call, then its completion once Done runs
	now      func() time.Time
}

func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{interval: interval, now: time.Now}
}

// Wait blocks until the next call is allowed. The first call never waits.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.last.IsZero() {
		if wait := p.interval - p.now().Sub(p.last); wait > 0 {
			t := time.NewTimer(wait)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			}
		}
	}
	p.last = p.now()
	return nil
}

// Done marks the current call as finished; the next Wait counts from here.
func (p *Pacer) Done() {
	p.mu.Lock()
	p.last = p.now()
	p.mu.Unlock()
}
