package dashboard

import "sync/atomic"

// RunLock is a single-slot lock marking a pipeline run as in flight. The zero value is
// unlocked.
type RunLock struct {
	busy atomic.Bool
}

// TryAcquire takes the lock if it is free and reports whether it did.
func (l *RunLock) TryAcquire() bool {
	return l.busy.CompareAndSwap(false, true)
}

// Release frees the lock.
func (l *RunLock) Release() {
	l.busy.Store(false)
}

// Busy reports whether a run holds the lock.
func (l *RunLock) Busy() bool {
	return l.busy.Load()
}
