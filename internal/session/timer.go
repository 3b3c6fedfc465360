package session

import (
	"sync"
	"time"
)

// Timer accumulates elapsed interview time across pauses. Start on a running
// timer and Stop on a stopped timer are no-ops, so lifecycle code can call
// them unconditionally on every path out of a state.
type Timer struct {
	mu          sync.Mutex
	running     bool
	startedAt   time.Time
	accumulated time.Duration

	now func() time.Time
}

// NewTimer creates a stopped timer
func NewTimer() *Timer {
	return &Timer{now: time.Now}
}

// Start begins or resumes accumulation
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.running = true
	t.startedAt = t.now()
}

// Stop halts accumulation, keeping the elapsed total
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.accumulated += t.now().Sub(t.startedAt)
	t.running = false
}

// Reset stops the timer and clears the accumulated total
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
	t.accumulated = 0
}

// Running reports whether the timer is accumulating
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Elapsed returns the total accumulated time, including the in-progress
// interval when running.
func (t *Timer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return t.accumulated + t.now().Sub(t.startedAt)
	}
	return t.accumulated
}
