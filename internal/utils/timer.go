package utils

import "time"

// Timer measures elapsed wall-clock time for a single node run. Create one
// with [NewTimer], which starts measuring immediately; call [Timer.Stop] when
// the run reaches a terminal state and read the result with [Timer.Elapsed].
type Timer struct {
	startTime time.Time
	elapsed   time.Duration
	stopped   bool
}

// NewTimer creates a Timer and immediately records the current time as the
// start instant.
func NewTimer() *Timer {
	return &Timer{startTime: time.Now()}
}

// Start resets the timer to begin a fresh measurement. It can be called on a
// stopped timer to reuse it without allocating a new instance.
func (t *Timer) Start() {
	t.startTime = time.Now()
	t.stopped = false
}

// Stop captures the elapsed time since the last Start (or construction).
// Stopping an already stopped timer is a no-op, so terminal paths can call it
// unconditionally.
func (t *Timer) Stop() {
	if t.stopped {
		return
	}
	t.elapsed = time.Since(t.startTime)
	t.stopped = true
}

// Elapsed returns the duration captured by the most recent Stop. While the
// timer is still running it returns the time elapsed so far.
func (t *Timer) Elapsed() time.Duration {
	if !t.stopped {
		return time.Since(t.startTime)
	}
	return t.elapsed
}
