package presence

import "sync"

var (
	defaultMu      sync.Mutex
	defaultTracker *Tracker
)

// Default returns the process-wide tracker, creating and starting it on first
// access with opts. Later calls ignore opts.
func Default(opts ...Option) *Tracker {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultTracker == nil {
		defaultTracker = NewTracker(opts...)
		defaultTracker.Start()
	}
	return defaultTracker
}

// Destroy tears down the process-wide tracker. The next Default call builds a
// fresh one.
func Destroy() {
	defaultMu.Lock()
	t := defaultTracker
	defaultTracker = nil
	defaultMu.Unlock()

	if t != nil {
		t.Destroy()
	}
}
