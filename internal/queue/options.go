package queue

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dbqueue/internal/config"
	"dbqueue/internal/identity"
	"dbqueue/internal/store"
	"dbqueue/internal/wake"
)

const (
	defaultMaxSingleWait      = time.Second
	defaultTakeBlockingTime   = 60 * time.Second
	defaultMaxConflictRetries = 16
	defaultDelayFloor         = time.Millisecond
)

// Options configure a Queue.
type Options struct {
	// Table is the physical table; it must already exist (see store.EnsureTable).
	Table string
	// Name is the logical queue name stored in queue_name.
	Name string
	// Identity is recorded in inserted_by and acquired_by. Defaults to
	// host:pid:random.
	Identity string
	// Priority selects (priority DESC, id ASC) ordering; otherwise id ASC.
	Priority bool
	// Delay makes the queue delay-capable.
	Delay bool

	MaxSingleWait      time.Duration
	TakeBlockingTime   time.Duration
	MaxConflictRetries int
	DelayFloor         time.Duration

	// Wake is the channel producers signal and blocked consumers wait on.
	// Defaults to an in-process channel.
	Wake   wake.Channel
	Logger *slog.Logger
	// Now supplies the clock used for inserted_at, acquired_at, and
	// eligibility. Defaults to time.Now.
	Now func() time.Time
}

// OptionsFromConfig maps the [store] and [queue] config sections onto Options.
// Wake and Logger are left for the caller.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Table:              cfg.Store.Table,
		Name:               cfg.Queue.Name,
		Identity:           cfg.Queue.Identity,
		Priority:           cfg.Queue.Priority,
		Delay:              cfg.Queue.Delay,
		MaxSingleWait:      cfg.MaxSingleWait(),
		TakeBlockingTime:   cfg.TakeBlockingTime(),
		MaxConflictRetries: cfg.Queue.MaxConflictRetries,
		DelayFloor:         cfg.DelayFloor(),
	}
}

func (o *Options) normalize() error {
	o.Table = strings.TrimSpace(o.Table)
	if o.Table == "" {
		o.Table = "queue"
	}
	if _, err := store.QuoteTable(o.Table); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	o.Name = strings.TrimSpace(o.Name)
	if o.Name == "" {
		return fmt.Errorf("%w: queue name is required", ErrInvalidConfig)
	}
	o.Identity = identity.Resolve(o.Identity)
	if o.MaxSingleWait <= 0 {
		o.MaxSingleWait = defaultMaxSingleWait
	}
	if o.TakeBlockingTime <= 0 {
		o.TakeBlockingTime = defaultTakeBlockingTime
	}
	if o.MaxConflictRetries <= 0 {
		o.MaxConflictRetries = defaultMaxConflictRetries
	}
	if o.DelayFloor <= 0 {
		o.DelayFloor = defaultDelayFloor
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return nil
}

func (o Options) eligibility() Eligibility {
	if o.Delay {
		return EligibleAfterDelay
	}
	return EligibleImmediately
}

func (o Options) ordering() Ordering {
	if o.Priority {
		return OrderByPriority
	}
	return OrderFIFO
}
