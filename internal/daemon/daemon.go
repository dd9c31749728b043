package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"

	"dbqueue/internal/codec"
	"dbqueue/internal/config"
	"dbqueue/internal/logging"
	"dbqueue/internal/notifications"
	"dbqueue/internal/queue"
	"dbqueue/internal/store"
)

const sweepTimeout = 10 * time.Minute

// Files dbqueued keeps in the data and log directories.
const (
	LockFileName   = "dbqueued.lock"
	PIDFileName    = "dbqueued.pid"
	CurrentLogName = "dbqueued.log"
)

// Daemon schedules maintenance sweeps and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	logPath  string
	now      func() time.Time
	notifier notifications.Service

	lockPath string
	lock     *flock.Flock

	mu        sync.Mutex
	cron      *cron.Cron
	entry     cron.EntryID
	lastSweep SweepResult
	failing   bool
	api       *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
}

// SweepResult describes one maintenance pass.
type SweepResult struct {
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	RowsRemoved int64         `json:"rows_removed"`
	LogsRemoved int           `json:"logs_removed"`
	Error       string        `json:"error,omitempty"`
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool        `json:"running"`
	StorePath     string      `json:"store_path"`
	Table         string      `json:"table"`
	LockFilePath  string      `json:"lock_file_path"`
	Schedule      string      `json:"schedule"`
	RetentionDays int         `json:"retention_days"`
	NextSweep     time.Time   `json:"next_sweep,omitzero"`
	APIAddr       string      `json:"api_addr,omitempty"`
	LastSweep     SweepResult `json:"last_sweep"`
}

// New constructs a daemon over an open store. logPath names the current log
// file, which pruning never removes.
func New(cfg *config.Config, db *store.Store, logger *slog.Logger, logPath string) (*Daemon, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, LockFileName)
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    db,
		logPath:  logPath,
		now:      time.Now,
		notifier: notifications.NewService(cfg),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock and schedules the maintenance sweep.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another dbqueued instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	c := cron.New()
	entry, err := c.AddFunc(d.cfg.Maintenance.Schedule, func() {
		sweepCtx, sweepCancel := context.WithTimeout(runCtx, sweepTimeout)
		defer sweepCancel()
		_, _ = d.RunNow(sweepCtx)
	})
	if err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("schedule sweep %q: %w", d.cfg.Maintenance.Schedule, err)
	}
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}

	d.mu.Lock()
	d.cron = c
	d.entry = entry
	d.cancel = cancel
	d.mu.Unlock()
	c.Start()

	d.running.Store(true)
	d.logger.Info("dbqueue daemon started",
		logging.String("lock", d.lockPath),
		logging.String("schedule", d.cfg.Maintenance.Schedule),
		logging.Int("retention_days", d.cfg.Maintenance.RetentionDays),
	)
	return nil
}

// Stop cancels scheduling, waits for a running sweep, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.mu.Lock()
	c, cancel := d.cron, d.cancel
	d.cron, d.cancel = nil, nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c != nil {
		<-c.Stop().Done()
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("dbqueue daemon stopped")
}

// Close stops the daemon. The store belongs to the caller.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// RunNow performs one maintenance sweep: claimed rows past retention are
// deleted, from every queue in the table or only the configured one, and
// old daemon logs are pruned.
func (d *Daemon) RunNow(ctx context.Context) (SweepResult, error) {
	result := SweepResult{StartedAt: d.now()}
	days := d.cfg.Maintenance.RetentionDays

	removed, err := d.cleanup(ctx, days)
	result.RowsRemoved = removed
	result.LogsRemoved = logging.PruneLogs(d.logger, d.cfg.Paths.LogDir, "dbqueued-*.log", d.logPath, days)
	result.Duration = time.Since(result.StartedAt)
	if err != nil {
		result.Error = err.Error()
		logging.ErrorWithContext(d.logger, "maintenance sweep failed", "sweep_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check store access and busy_timeout_ms"),
		)
	} else {
		d.logger.Info("maintenance sweep complete",
			logging.String(logging.FieldEventType, "sweep_complete"),
			logging.Int64("rows_removed", result.RowsRemoved),
			logging.Int("logs_removed", result.LogsRemoved),
			logging.Duration("duration", result.Duration),
		)
	}

	d.mu.Lock()
	d.lastSweep = result
	recovered := d.failing && err == nil
	d.failing = err != nil
	d.mu.Unlock()

	d.notify(ctx, result, err, recovered)
	return result, err
}

func (d *Daemon) notify(ctx context.Context, result SweepResult, sweepErr error, recovered bool) {
	var err error
	switch {
	case sweepErr != nil:
		err = d.notifier.NotifySweepFailed(ctx, d.cfg.Store.Table, sweepErr)
	case recovered:
		err = d.notifier.NotifySweepRecovered(ctx, notifications.SweepSummary{
			Table:       d.cfg.Store.Table,
			RowsRemoved: result.RowsRemoved,
			Duration:    result.Duration,
		})
	}
	if err != nil {
		d.logger.Warn("sweep notification failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "notification_failed"),
		)
	}
}

func (d *Daemon) cleanup(ctx context.Context, days int) (int64, error) {
	if d.cfg.Maintenance.AllQueues {
		return queue.CleanupTable(ctx, d.store, d.cfg.Store.Table, days, d.now())
	}
	opts := queue.OptionsFromConfig(d.cfg)
	opts.Logger = d.logger
	opts.Now = d.now
	q, err := queue.New[[]byte](d.store, codec.Bytes{}, opts)
	if err != nil {
		return 0, err
	}
	defer q.Close()
	return q.Cleanup(ctx, days)
}

// QueueStats summarizes every queue in the configured table.
func (d *Daemon) QueueStats(ctx context.Context) ([]queue.Stats, error) {
	return queue.StatsAll(ctx, d.store, d.cfg.Store.Table, d.now())
}

// Health returns store diagnostics for the configured table.
func (d *Daemon) Health(ctx context.Context) (store.Health, error) {
	return d.store.CheckHealth(ctx, d.cfg.Store.Table)
}

// LockPath returns the daemon lock file location.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	status := Status{
		Running:       d.running.Load(),
		StorePath:     d.store.Path(),
		Table:         d.cfg.Store.Table,
		LockFilePath:  d.lockPath,
		Schedule:      d.cfg.Maintenance.Schedule,
		RetentionDays: d.cfg.Maintenance.RetentionDays,
		LastSweep:     d.lastSweep,
		APIAddr:       d.api.addr(),
	}
	if d.cron != nil {
		status.NextSweep = d.cron.Entry(d.entry).Next
	}
	return status
}
