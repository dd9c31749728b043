package queue

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dbqueue/internal/codec"
	"dbqueue/internal/store"
)

// conflictDB fails every transaction with a write conflict.
type conflictDB struct {
	attempts atomic.Int32
}

func (d *conflictDB) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, errors.New("unexpected exec")
}

func (d *conflictDB) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errors.New("unexpected query")
}

func (d *conflictDB) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

func (d *conflictDB) ExecRetry(context.Context, string, ...any) (sql.Result, error) {
	return nil, errors.New("unexpected exec")
}

func (d *conflictDB) InTx(context.Context, func(store.Querier) error) error {
	d.attempts.Add(1)
	return store.ErrConflict
}

func TestClaimGivesUpAfterMaxConflictRetries(t *testing.T) {
	db := &conflictDB{}
	q, err := New[string](db, codec.String{}, Options{Name: "busy", MaxConflictRetries: 4})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = q.claimOne(context.Background())
	if !errors.Is(err, ErrContended) {
		t.Fatalf("expected ErrContended, got %v", err)
	}
	if got := db.attempts.Load(); got != 4 {
		t.Fatalf("expected 4 attempts, got %d", got)
	}
}

func TestClaimStopsRetryingWhenContextEnds(t *testing.T) {
	db := &conflictDB{}
	q, err := New[string](db, codec.String{}, Options{Name: "busy", MaxConflictRetries: 1000})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := q.claimOne(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestJitterStaysInRange(t *testing.T) {
	for _, d := range []time.Duration{time.Millisecond, 5 * time.Millisecond, 250 * time.Millisecond} {
		for range 100 {
			got := jitter(d)
			if got < d/2 || got > d {
				t.Fatalf("jitter(%v) = %v outside [%v, %v]", d, got, d/2, d)
			}
		}
	}
	if got := jitter(1); got != 1 {
		t.Fatalf("jitter(1ns) = %v", got)
	}
}

func TestStatementsFollowStrategies(t *testing.T) {
	stmt, err := buildStatements("jobs", EligibleAfterDelay, OrderByPriority)
	if err != nil {
		t.Fatalf("buildStatements: %v", err)
	}
	if got := stmt.candidateArgs("q", 42); len(got) != 2 {
		t.Fatalf("delay candidate args = %v", got)
	}

	fifo, err := buildStatements("jobs", EligibleImmediately, OrderFIFO)
	if err != nil {
		t.Fatalf("buildStatements: %v", err)
	}
	if got := fifo.candidateArgs("q", 42); len(got) != 1 {
		t.Fatalf("immediate candidate args = %v", got)
	}
	if stmt.candidate == fifo.candidate {
		t.Fatal("strategies should yield different candidate queries")
	}

	if _, err := buildStatements("jobs; drop", EligibleImmediately, OrderFIFO); err == nil {
		t.Fatal("expected invalid table to be rejected")
	}
}

type scriptedDelays struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *scriptedDelays) next(context.Context) (time.Duration, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.delays) == 0 {
		return 0, false, nil
	}
	d := s.delays[0]
	s.delays = s.delays[1:]
	return d, true, nil
}

func (s *scriptedDelays) push(d ...time.Duration) {
	s.mu.Lock()
	s.delays = append(s.delays, d...)
	s.mu.Unlock()
}

func TestSchedulerOnlyRearmsEarlier(t *testing.T) {
	delays := &scriptedDelays{}
	sched := newDelayScheduler(time.Millisecond, delays.next, func() {}, nil)
	defer sched.stop()
	ctx := context.Background()

	delays.push(time.Hour)
	sched.refresh(ctx)
	first, ok := sched.armed()
	if !ok {
		t.Fatal("expected timer to be armed")
	}

	delays.push(2 * time.Hour)
	sched.refresh(ctx)
	if got, _ := sched.armed(); !got.Equal(first) {
		t.Fatalf("later delay replaced timer: %v -> %v", first, got)
	}

	delays.push(time.Minute)
	sched.refresh(ctx)
	if got, _ := sched.armed(); !got.Before(first) {
		t.Fatalf("earlier delay did not re-arm: %v vs %v", got, first)
	}
}

func TestSchedulerSignalsAndRearms(t *testing.T) {
	delays := &scriptedDelays{}
	signals := make(chan struct{}, 4)
	sched := newDelayScheduler(time.Millisecond, delays.next, func() { signals <- struct{}{} }, nil)
	defer sched.stop()

	// The first fire re-queries and picks up the second delay.
	delays.push(20*time.Millisecond, 20*time.Millisecond)
	sched.refresh(context.Background())

	timeout := time.After(2 * time.Second)
	for i := range 2 {
		select {
		case <-signals:
		case <-timeout:
			t.Fatalf("signal %d never arrived", i+1)
		}
	}
	if _, ok := sched.armed(); ok {
		t.Fatal("expected no timer once delays are exhausted")
	}
}

func TestSchedulerFloorsNonPositiveDelays(t *testing.T) {
	delays := &scriptedDelays{}
	signals := make(chan struct{}, 1)
	sched := newDelayScheduler(time.Millisecond, delays.next, func() { signals <- struct{}{} }, nil)
	defer sched.stop()

	delays.push(-time.Second)
	sched.refresh(context.Background())
	select {
	case <-signals:
	case <-time.After(time.Second):
		t.Fatal("floored timer never fired")
	}
}

func TestSchedulerStopCancelsTimer(t *testing.T) {
	delays := &scriptedDelays{}
	signals := make(chan struct{}, 1)
	sched := newDelayScheduler(time.Millisecond, delays.next, func() { signals <- struct{}{} }, nil)

	delays.push(30 * time.Millisecond)
	sched.refresh(context.Background())
	sched.stop()

	select {
	case <-signals:
		t.Fatal("stopped scheduler still signalled")
	case <-time.After(100 * time.Millisecond):
	}
	delays.push(time.Millisecond)
	sched.refresh(context.Background())
	if _, ok := sched.armed(); ok {
		t.Fatal("stopped scheduler re-armed")
	}
}

func TestSchedulerLookupDoesNotHoldLock(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	closest := func(context.Context) (time.Duration, bool, error) {
		close(entered)
		<-release
		return time.Hour, true, nil
	}
	sched := newDelayScheduler(time.Millisecond, closest, func() {}, nil)
	defer sched.stop()

	done := make(chan struct{})
	go func() {
		sched.refresh(context.Background())
		close(done)
	}()
	<-entered

	armedDone := make(chan struct{})
	go func() {
		sched.armed()
		close(armedDone)
	}()
	select {
	case <-armedDone:
	case <-time.After(time.Second):
		t.Fatal("scheduler lock held during lookup")
	}

	close(release)
	<-done
	if _, ok := sched.armed(); !ok {
		t.Fatal("expected timer armed after lookup")
	}
}
