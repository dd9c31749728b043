package wake

import (
	"context"
	"time"
)

// Channel is a cross-process wake signal.
type Channel interface {
	// Signal notifies waiters. It returns immediately.
	Signal()
	// AwaitUntil blocks until a signal arrives (true), or the deadline passes
	// or ctx ends (false). A deadline in the past returns false immediately.
	AwaitUntil(ctx context.Context, deadline time.Time) bool
	// Close releases background resources.
	Close() error
}

// sleep waits for d, a local wake, or ctx. It reports whether the local
// channel fired.
func sleep(ctx context.Context, d time.Duration, woke <-chan struct{}) bool {
	if d <= 0 {
		return false
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-woke:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}
