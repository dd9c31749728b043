package wake

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"dbqueue/internal/logging"
	"dbqueue/internal/store"
)

const signalUpsert = `
INSERT INTO queue_signals (channel, seq, updated_at) VALUES (?, 1, ?)
ON CONFLICT(channel) DO UPDATE SET seq = seq + 1, updated_at = excluded.updated_at`

// Store is a wake channel backed by a sequence row in the shared database.
// Signal increments the row; AwaitUntil polls it. Reads are shared by every
// waiter in the process and paced to at most one per poll interval.
type Store struct {
	db       *store.Store
	channel  string
	interval time.Duration
	limiter  *rate.Limiter
	local    *Local
	logger   *slog.Logger

	mu       sync.Mutex
	lastSeq  int64
	haveSeq  bool
	signals  chan struct{}
	done     chan struct{}
	wg       sync.WaitGroup
	closeOne sync.Once
}

// NewStore returns a store-backed wake channel for channel. A background
// goroutine writes signals; call Close to stop it.
func NewStore(db *store.Store, channel string, interval time.Duration, logger *slog.Logger) *Store {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	s := &Store{
		db:       db,
		channel:  channel,
		interval: interval,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		local:    NewLocal(),
		logger:   logging.NewComponentLogger(logger, "wake").With(logging.String("channel", channel)),
		signals:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	s.wg.Add(1)
	go s.writeLoop()
	return s
}

// Signal wakes local waiters immediately and schedules a sequence bump for
// other processes. Signals raised while a write is pending coalesce.
func (s *Store) Signal() {
	s.local.Signal()
	select {
	case s.signals <- struct{}{}:
	default:
	}
}

// AwaitUntil waits for a local signal or a change of the sequence row.
func (s *Store) AwaitUntil(ctx context.Context, deadline time.Time) bool {
	if !time.Now().Before(deadline) {
		return false
	}
	woke := s.local.wait()
	start, ok := s.sequence(ctx, true)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 || ctx.Err() != nil {
			return false
		}
		if sleep(ctx, min(s.interval, remaining), woke) {
			return true
		}
		seq, have := s.sequence(ctx, false)
		switch {
		case have && ok && seq != start:
			return true
		case have && !ok:
			start, ok = seq, true
		}
	}
}

// sequence returns the latest known sequence. The database is read when force
// is set and nothing is cached, or when the shared limiter allows it;
// otherwise the value last read by any waiter is returned. The second result
// reports whether a value is available.
func (s *Store) sequence(ctx context.Context, force bool) (int64, bool) {
	s.mu.Lock()
	cached, have := s.lastSeq, s.haveSeq
	s.mu.Unlock()

	if !(force && !have) && !s.limiter.Allow() {
		return cached, have
	}

	var seq int64
	err := s.db.QueryRowContext(ctx, "SELECT seq FROM queue_signals WHERE channel = ?", s.channel).Scan(&seq)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		seq = 0
	case err != nil:
		if ctx.Err() == nil {
			s.logger.Debug("wake sequence read failed", logging.Error(err))
		}
		return cached, have
	}

	s.mu.Lock()
	s.lastSeq, s.haveSeq = seq, true
	s.mu.Unlock()
	return seq, true
}

func (s *Store) writeLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			select {
			case <-s.signals:
				s.write()
			default:
			}
			return
		case <-s.signals:
			s.write()
		}
	}
}

func (s *Store) write() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.db.ExecRetry(ctx, signalUpsert, s.channel, time.Now().UnixNano()); err != nil {
		logging.WarnWithContext(s.logger, "wake signal write failed", "wake_signal_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "consumers in other processes wake on their next poll"),
		)
	}
}

// Close stops the background writer after flushing a pending signal.
func (s *Store) Close() error {
	s.closeOne.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
	return nil
}
