package policy

import (
	"sync"
	"time"
)

// Throttle enforces a minimum interval between executions. Only executions
// reported through Mark count; a skipped or failed attempt leaves the
// window where it was.
type Throttle struct {
	interval time.Duration
	now      func() time.Time
	mu       sync.Mutex
	last     time.Time
}

// NewThrottle returns a throttle with the given floor. A nil clock uses
// time.Now.
func NewThrottle(interval time.Duration, now func() time.Time) *Throttle {
	if now == nil {
		now = time.Now
	}
	return &Throttle{interval: interval, now: now}
}

// Ready reports whether the interval has elapsed since the last Mark.
func (t *Throttle) Ready() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last.IsZero() || t.now().Sub(t.last) >= t.interval
}

// Mark records an execution at the current time, re-arming the window.
func (t *Throttle) Mark() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = t.now()
}

// Last returns the time of the last recorded execution.
func (t *Throttle) Last() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}
