package storage

import (
	"context"
	"sync"
	"time"

	"github.com/eli0s78/Universal-Academic-Workflow/core/workflow"
)

// defaultQuietPeriod is how long the autosaver waits after the last change
// notification before writing.
const defaultQuietPeriod = 2 * time.Second

// Autosaver coalesces rapid successive state changes into one debounced
// snapshot write. Call Notify after every mutation; a save happens once the
// workflow has been quiet for the configured period. Flush forces an
// immediate save; Close stops the pending timer and flushes.
type Autosaver struct {
	saver       *Saver
	snapshotFn  func() workflow.Snapshot
	quietPeriod time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

// AutosaverOption customizes an Autosaver.
type AutosaverOption func(*Autosaver)

// WithQuietPeriod overrides the debounce quiet period.
func WithQuietPeriod(quietPeriod time.Duration) AutosaverOption {
	return func(autosaver *Autosaver) {
		autosaver.quietPeriod = quietPeriod
	}
}

// NewAutosaver creates an Autosaver that snapshots via snapshotFn and writes
// through saver.
func NewAutosaver(saver *Saver, snapshotFn func() workflow.Snapshot, opts ...AutosaverOption) *Autosaver {
	autosaver := &Autosaver{
		saver:       saver,
		snapshotFn:  snapshotFn,
		quietPeriod: defaultQuietPeriod,
	}
	for _, opt := range opts {
		opt(autosaver)
	}
	return autosaver
}

// Notify records that the workflow changed, (re)starting the quiet-period
// timer. Notifications after Close are ignored.
func (autosaver *Autosaver) Notify() {
	autosaver.mu.Lock()
	defer autosaver.mu.Unlock()

	if autosaver.closed {
		return
	}
	if autosaver.timer != nil {
		autosaver.timer.Stop()
	}
	autosaver.timer = time.AfterFunc(autosaver.quietPeriod, func() {
		// Degradation happens inside the saver; a total failure was already
		// logged there and there is nobody left to return it to.
		_, _ = autosaver.saver.Save(context.Background(), autosaver.snapshotFn()) //nolint:errcheck
	})
}

// Flush cancels any pending debounced write and saves immediately.
func (autosaver *Autosaver) Flush(ctx context.Context) (Tier, error) {
	autosaver.mu.Lock()
	if autosaver.timer != nil {
		autosaver.timer.Stop()
		autosaver.timer = nil
	}
	autosaver.mu.Unlock()

	return autosaver.saver.Save(ctx, autosaver.snapshotFn())
}

// Close stops the autosaver and performs a final flush.
func (autosaver *Autosaver) Close(ctx context.Context) error {
	autosaver.mu.Lock()
	if autosaver.closed {
		autosaver.mu.Unlock()
		return nil
	}
	autosaver.closed = true
	if autosaver.timer != nil {
		autosaver.timer.Stop()
		autosaver.timer = nil
	}
	autosaver.mu.Unlock()

	_, err := autosaver.saver.Save(ctx, autosaver.snapshotFn())
	return err
}
