package queue

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"dbqueue/internal/logging"
)

// delayScheduler keeps at most one timer armed for the earliest delayed row
// this process knows about. When it fires it signals the wake channel so
// blocked consumers re-poll as the row becomes eligible, then re-arms for the
// next one. Consumers still poll every MaxSingleWait, so a missed or late
// timer only costs latency.
type delayScheduler struct {
	mu     sync.Mutex
	timer  *time.Timer
	fireAt time.Time
	gen    uint64
	closed bool

	floor   time.Duration
	closest func(ctx context.Context) (time.Duration, bool, error)
	signal  func()
	logger  *slog.Logger
}

func newDelayScheduler(floor time.Duration, closest func(context.Context) (time.Duration, bool, error), signal func(), logger *slog.Logger) *delayScheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &delayScheduler{floor: floor, closest: closest, signal: signal, logger: logger}
}

// refresh recomputes the closest delay and arms the timer when it would fire
// strictly earlier than the armed one, or when none is armed. The lookup runs
// without holding the lock.
func (s *delayScheduler) refresh(ctx context.Context) {
	if s == nil {
		return
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}
	delay, ok := s.lookup(ctx)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armLocked(delay)
}

func (s *delayScheduler) lookup(ctx context.Context) (time.Duration, bool) {
	delay, ok, err := s.closest(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Debug("delay scheduler lookup failed", logging.Error(err))
		}
		return 0, false
	}
	return delay, ok
}

func (s *delayScheduler) armLocked(delay time.Duration) {
	if s.closed {
		return
	}
	delay = max(delay, s.floor)
	fireAt := time.Now().Add(delay)
	if s.timer != nil && !fireAt.Before(s.fireAt) {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.fireAt = fireAt
	s.timer = time.AfterFunc(delay, func() { s.fire(gen) })
}

func (s *delayScheduler) fire(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.fireAt = time.Time{}
	s.mu.Unlock()
	s.signal()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.refresh(ctx)
}

// armed reports the pending fire time, if any.
func (s *delayScheduler) armed() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fireAt, s.timer != nil
}

func (s *delayScheduler) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// closestDelay returns how long until the earliest unclaimed row with a
// future eligible_at becomes eligible. Rows already eligible are ignored;
// they are claimable now and need no timer.
func (q *Queue[T]) closestDelay(ctx context.Context) (time.Duration, bool, error) {
	now := q.nowNanos()
	var next sql.NullInt64
	if err := q.db.QueryRowContext(ctx, q.stmt.nextEligible, q.opts.Name, now).Scan(&next); err != nil {
		return 0, false, err
	}
	if !next.Valid {
		return 0, false, nil
	}
	return time.Duration(next.Int64 - now), true, nil
}
