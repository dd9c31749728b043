package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"dbqueue/internal/codec"
	"dbqueue/internal/config"
	"dbqueue/internal/logging"
	"dbqueue/internal/store"
	"dbqueue/internal/wake"
)

// DB is the store surface a Queue needs. *store.Store satisfies it.
type DB interface {
	store.Querier
	ExecRetry(ctx context.Context, query string, args ...any) (sql.Result, error)
	InTx(ctx context.Context, fn func(q store.Querier) error) error
}

// Queue is a durable queue of T values in one logical queue of a shared table.
// It is safe for concurrent use.
type Queue[T any] struct {
	db     DB
	codec  codec.Codec[T]
	opts   Options
	stmt   statements
	wake   wake.Channel
	sched  *delayScheduler
	logger *slog.Logger

	ownsWake bool
	closed   atomic.Bool
}

// New builds a queue over an existing table.
func New[T any](db DB, c codec.Codec[T], opts Options) (*Queue[T], error) {
	if db == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: codec is required", ErrInvalidConfig)
	}
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	stmt, err := buildStatements(opts.Table, opts.eligibility(), opts.ordering())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	q := &Queue[T]{
		db:    db,
		codec: c,
		opts:  opts,
		stmt:  stmt,
		wake:  opts.Wake,
		logger: logging.NewComponentLogger(opts.Logger, "queue").With(
			logging.String(logging.FieldQueue, opts.Name),
			logging.String(logging.FieldClaimant, opts.Identity),
		),
	}
	if q.wake == nil {
		q.wake = wake.NewLocal()
		q.ownsWake = true
	}
	if opts.Delay {
		q.sched = newDelayScheduler(opts.DelayFloor, q.closestDelay, q.wake.Signal, q.logger)
	}
	return q, nil
}

// Open builds a queue from config: it provisions the configured table, opens
// the configured wake channel, and ties the channel's lifetime to the queue.
func Open[T any](ctx context.Context, cfg *config.Config, db *store.Store, c codec.Codec[T], logger *slog.Logger) (*Queue[T], error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is required", ErrInvalidConfig)
	}
	if err := db.EnsureTable(ctx, cfg.Store.Table); err != nil {
		return nil, err
	}
	ch, err := wake.Open(ctx, cfg, db, wake.ChannelName(cfg.Store.Table, cfg.Queue.Name), logger)
	if err != nil {
		return nil, err
	}
	opts := OptionsFromConfig(cfg)
	opts.Wake = ch
	opts.Logger = logger
	q, err := New(db, c, opts)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}
	q.ownsWake = true
	return q, nil
}

// Name returns the logical queue name.
func (q *Queue[T]) Name() string { return q.opts.Name }

// Identity returns the claimant identity this queue records.
func (q *Queue[T]) Identity() string { return q.opts.Identity }

// Ordering returns the configured ordering strategy.
func (q *Queue[T]) Ordering() Ordering { return q.opts.ordering() }

// Eligibility returns the configured eligibility strategy.
func (q *Queue[T]) Eligibility() Eligibility { return q.opts.eligibility() }

// Close stops the delay scheduler and, when the queue created it, the wake
// channel. Rows are unaffected.
func (q *Queue[T]) Close() error {
	if !q.closed.CompareAndSwap(false, true) {
		return nil
	}
	if q.sched != nil {
		q.sched.stop()
	}
	if q.ownsWake {
		return q.wake.Close()
	}
	return nil
}

func (q *Queue[T]) checkOpen() error {
	if q.closed.Load() {
		return ErrClosed
	}
	return nil
}

func (q *Queue[T]) nowNanos() int64 {
	return q.opts.Now().UnixNano()
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
