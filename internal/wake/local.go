package wake

import (
	"context"
	"sync"
	"time"
)

// Local broadcasts signals to waiters in this process by closing a channel.
type Local struct {
	mu sync.Mutex
	ch chan struct{}
}

// NewLocal returns an in-process wake channel.
func NewLocal() *Local {
	return &Local{ch: make(chan struct{})}
}

// Signal wakes every current waiter.
func (l *Local) Signal() {
	l.mu.Lock()
	close(l.ch)
	l.ch = make(chan struct{})
	l.mu.Unlock()
}

func (l *Local) wait() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ch
}

// AwaitUntil blocks until Signal is called, the deadline passes, or ctx ends.
func (l *Local) AwaitUntil(ctx context.Context, deadline time.Time) bool {
	woke := l.wait()
	return sleep(ctx, time.Until(deadline), woke)
}

// Close is a no-op.
func (l *Local) Close() error { return nil }
