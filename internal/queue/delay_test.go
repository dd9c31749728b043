package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dbqueue/internal/codec"
	"dbqueue/internal/queue"
	"dbqueue/internal/testsupport"
)

type reminder struct {
	Text  string        `json:"text"`
	After time.Duration `json:"after"`
}

func (r reminder) Delay() time.Duration { return r.After }

func TestDelayedItemIsInvisibleUntilEligible(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDelay())
	db := testsupport.MustOpenStore(t, cfg)
	q := testsupport.MustOpenQueue[string](t, cfg, db, codec.String{})
	ctx := context.Background()

	testsupport.MustAdd(t, q, "later", queue.AddOptions{Delay: 2 * time.Second})
	if _, ok, err := q.Poll(ctx); err != nil || ok {
		t.Fatalf("Poll before delay: ok=%v err=%v", ok, err)
	}
	if _, ok, err := q.Peek(ctx); err != nil || ok {
		t.Fatalf("Peek before delay: ok=%v err=%v", ok, err)
	}
	if n, err := q.Size(ctx); err != nil || n != 1 {
		t.Fatalf("Size counts delayed rows: got %d, %v", n, err)
	}

	testsupport.MustAdd(t, q, "now", queue.AddOptions{})
	v, ok, err := q.Poll(ctx)
	if err != nil || !ok || v != "now" {
		t.Fatalf("undelayed row should pass the delayed one: %q %v %v", v, ok, err)
	}
}

func TestDelayedItemWakesBlockedConsumer(t *testing.T) {
	// The per-wait cap is far longer than the delay, so the return relies on
	// the delay timer signalling the wake channel.
	cfg := testsupport.NewConfig(t, testsupport.WithDelay(), testsupport.WithMaxSingleWait(3000))
	db := testsupport.MustOpenStore(t, cfg)
	q := testsupport.MustOpenQueue[string](t, cfg, db, codec.String{})

	const delay = 300 * time.Millisecond
	start := time.Now()
	testsupport.MustAdd(t, q, "timed", queue.AddOptions{Delay: delay})

	v, ok, err := q.PollTimeout(context.Background(), 5*time.Second)
	elapsed := time.Since(start)
	if err != nil || !ok || v != "timed" {
		t.Fatalf("PollTimeout = %q, %v, %v", v, ok, err)
	}
	if elapsed < delay {
		t.Fatalf("claimed after %v, before the %v delay", elapsed, delay)
	}
	if elapsed > 2*time.Second {
		t.Fatalf("claimed after %v, timer did not wake the consumer", elapsed)
	}
}

func TestDelayTimerWakesConsumerInOtherProcess(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDelay(), testsupport.WithWakeKind("store"), testsupport.WithMaxSingleWait(4000))
	// Separate store handles and queues stand in for two processes.
	producer := testsupport.MustOpenQueue[string](t, cfg, testsupport.MustOpenStore(t, cfg), codec.String{})
	consumer := testsupport.MustOpenQueue[string](t, cfg, testsupport.MustOpenStore(t, cfg), codec.String{})

	type result struct {
		value string
		ok    bool
		err   error
		at    time.Time
	}
	done := make(chan result, 1)
	go func() {
		v, ok, err := consumer.PollTimeout(context.Background(), 6*time.Second)
		done <- result{v, ok, err, time.Now()}
	}()

	// Let the consumer block before the delayed row exists, so only the
	// producer's timer can signal it.
	time.Sleep(100 * time.Millisecond)
	const delay = 300 * time.Millisecond
	start := time.Now()
	testsupport.MustAdd(t, producer, "remote", queue.AddOptions{Delay: delay})

	r := <-done
	if r.err != nil || !r.ok || r.value != "remote" {
		t.Fatalf("PollTimeout = %q, %v, %v", r.value, r.ok, r.err)
	}
	elapsed := r.at.Sub(start)
	if elapsed < delay {
		t.Fatalf("claimed after %v, before the %v delay", elapsed, delay)
	}
	if elapsed > 2*time.Second {
		t.Fatalf("claimed after %v, store signal did not wake the consumer", elapsed)
	}
}

func TestDelayerValueSetsDelay(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDelay())
	db := testsupport.MustOpenStore(t, cfg)
	q := testsupport.MustOpenQueue[reminder](t, cfg, db, codec.JSON[reminder]{})
	ctx := context.Background()

	if _, err := q.Add(ctx, reminder{Text: "stretch", After: time.Hour}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, ok, err := q.Poll(ctx); err != nil || ok {
		t.Fatalf("Delayer row claimed early: ok=%v err=%v", ok, err)
	}

	// An explicit delay wins over the value's own.
	if _, err := q.AddWith(ctx, reminder{Text: "soon", After: time.Hour}, queue.AddOptions{Delay: time.Millisecond}); err != nil {
		t.Fatalf("AddWith: %v", err)
	}
	got, ok, err := q.PollTimeout(ctx, time.Second)
	if err != nil || !ok || got.Text != "soon" {
		t.Fatalf("PollTimeout = %+v, %v, %v", got, ok, err)
	}
}

func TestDelayRejectedOnImmediateQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	db := testsupport.MustOpenStore(t, cfg)
	q := testsupport.MustOpenQueue[string](t, cfg, db, codec.String{})

	_, err := q.AddWith(context.Background(), "x", queue.AddOptions{Delay: time.Second})
	if !errors.Is(err, queue.ErrDelayUnsupported) {
		t.Fatalf("expected ErrDelayUnsupported, got %v", err)
	}
	if n, _ := q.Size(context.Background()); n != 0 {
		t.Fatalf("rejected add still inserted %d rows", n)
	}
}

func TestDelayerIgnoredOnImmediateQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	db := testsupport.MustOpenStore(t, cfg)
	q := testsupport.MustOpenQueue[reminder](t, cfg, db, codec.JSON[reminder]{})
	ctx := context.Background()

	if _, err := q.Add(ctx, reminder{Text: "now", After: time.Hour}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got, ok, err := q.Poll(ctx); err != nil || !ok || got.Text != "now" {
		t.Fatalf("Poll = %+v, %v, %v", got, ok, err)
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestCleanupRetentionBoundary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	db := testsupport.MustOpenStore(t, cfg)
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	q, err := queue.New[string](db, codec.String{}, queue.Options{
		Table: cfg.Store.Table,
		Name:  "cleanup",
		Now:   clock.Now,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { q.Close() })
	ctx := context.Background()

	testsupport.MustAdd(t, q, "claimed", queue.AddOptions{})
	if _, ok, err := q.Poll(ctx); err != nil || !ok {
		t.Fatalf("Poll: %v %v", ok, err)
	}
	testsupport.MustAdd(t, q, "unclaimed", queue.AddOptions{})

	clock.Advance(10*24*time.Hour - time.Minute)
	if n, err := q.Cleanup(ctx, 10); err != nil || n != 0 {
		t.Fatalf("Cleanup inside retention = %d, %v", n, err)
	}

	clock.Advance(2 * time.Minute)
	if n, err := q.Cleanup(ctx, 10); err != nil || n != 1 {
		t.Fatalf("Cleanup past retention = %d, %v", n, err)
	}
	if n, err := q.Size(ctx); err != nil || n != 1 {
		t.Fatalf("unclaimed row should survive cleanup: size %d, %v", n, err)
	}

	if _, err := q.Cleanup(ctx, -1); !errors.Is(err, queue.ErrInvalidConfig) {
		t.Fatalf("negative retention: %v", err)
	}
}

func TestCleanupAllSpansQueues(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	db := testsupport.MustOpenStore(t, cfg)
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	ctx := context.Background()

	var queues []*queue.Queue[string]
	for _, name := range []string{"a", "b"} {
		q, err := queue.New[string](db, codec.String{}, queue.Options{Table: cfg.Store.Table, Name: name, Now: clock.Now})
		if err != nil {
			t.Fatalf("New(%s): %v", name, err)
		}
		t.Cleanup(func() { q.Close() })
		testsupport.MustAdd(t, q, name, queue.AddOptions{})
		if _, ok, err := q.Poll(ctx); err != nil || !ok {
			t.Fatalf("Poll(%s): %v %v", name, ok, err)
		}
		queues = append(queues, q)
	}

	clock.Advance(24*time.Hour + time.Second)
	n, err := queues[0].CleanupAll(ctx, 1)
	if err != nil || n != 2 {
		t.Fatalf("CleanupAll = %d, %v", n, err)
	}
}

func TestStats(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDelay())
	db := testsupport.MustOpenStore(t, cfg)
	q := testsupport.MustOpenQueue[string](t, cfg, db, codec.String{})
	ctx := context.Background()

	empty, err := q.Stats(ctx)
	if err != nil || empty.Queue != cfg.Queue.Name || empty.Unclaimed != 0 {
		t.Fatalf("Stats on empty queue = %+v, %v", empty, err)
	}

	testsupport.MustAdd(t, q, "ready-1", queue.AddOptions{})
	testsupport.MustAdd(t, q, "ready-2", queue.AddOptions{})
	testsupport.MustAdd(t, q, "delayed", queue.AddOptions{Delay: time.Hour})
	if _, ok, err := q.Poll(ctx); err != nil || !ok {
		t.Fatalf("Poll: %v %v", ok, err)
	}

	got, err := q.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if got.Unclaimed != 2 || got.Delayed != 1 || got.Claimed != 1 {
		t.Fatalf("unexpected stats %+v", got)
	}
	if got.OldestUnclaimed.IsZero() {
		t.Fatal("expected oldest unclaimed time")
	}

	all, err := queue.StatsAll(ctx, db, cfg.Store.Table, time.Now())
	if err != nil || len(all) != 1 || all[0] != got {
		t.Fatalf("StatsAll = %+v, %v", all, err)
	}
}
