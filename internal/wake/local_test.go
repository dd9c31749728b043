package wake_test

import (
	"context"
	"testing"
	"time"

	"dbqueue/internal/wake"
)

func TestLocalAwaitReturnsTrueOnSignal(t *testing.T) {
	ch := wake.NewLocal()
	result := make(chan bool, 1)
	go func() {
		result <- ch.AwaitUntil(context.Background(), time.Now().Add(5*time.Second))
	}()

	// The waiter may not be parked yet; keep signalling until it reports.
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case woke := <-result:
			if !woke {
				t.Fatal("expected AwaitUntil to report a signal")
			}
			return
		case <-ticker.C:
			ch.Signal()
		case <-timeout:
			t.Fatal("waiter never woke")
		}
	}
}

func TestLocalAwaitTimesOut(t *testing.T) {
	ch := wake.NewLocal()
	start := time.Now()
	if ch.AwaitUntil(context.Background(), start.Add(50*time.Millisecond)) {
		t.Fatal("expected timeout without signal")
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("returned early after %s", elapsed)
	}
}

func TestLocalAwaitPastDeadlineReturnsImmediately(t *testing.T) {
	ch := wake.NewLocal()
	start := time.Now()
	if ch.AwaitUntil(context.Background(), start.Add(-time.Second)) {
		t.Fatal("expected false for past deadline")
	}
	if elapsed := time.Since(start); elapsed > 20*time.Millisecond {
		t.Fatalf("expected immediate return, took %s", elapsed)
	}
}

func TestLocalAwaitHonoursContext(t *testing.T) {
	ch := wake.NewLocal()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	start := time.Now()
	if ch.AwaitUntil(ctx, start.Add(5*time.Second)) {
		t.Fatal("expected false on context cancellation")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("context cancellation ignored, waited %s", elapsed)
	}
}

func TestSignalWithoutWaitersDoesNotBlock(t *testing.T) {
	ch := wake.NewLocal()
	for range 100 {
		ch.Signal()
	}
}
