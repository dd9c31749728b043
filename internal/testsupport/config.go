package testsupport

import (
	"path/filepath"
	"testing"

	"dbqueue/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The store lives in the temp dir, the wake channel is in-process, and waits
// are short enough for tests.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Store.Path = filepath.Join(base, "data", "queue.db")
	cfgVal.Queue.Name = "test"
	cfgVal.Queue.Identity = "test-worker"
	cfgVal.Queue.MaxSingleWaitMS = 100
	cfgVal.Queue.TakeBlockingSeconds = 1
	cfgVal.Wake.Kind = config.WakeLocal
	cfgVal.Wake.PollIntervalMS = 10

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithQueue sets the logical queue name.
func WithQueue(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Queue.Name = name
	}
}

// WithTable sets the physical table.
func WithTable(table string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Store.Table = table
	}
}

// WithDelay makes the configured queue delay-capable.
func WithDelay() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Queue.Delay = true
	}
}

// WithFIFO disables priority ordering.
func WithFIFO() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Queue.Priority = false
	}
}

// WithWakeKind selects the wake channel backend.
func WithWakeKind(kind string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Wake.Kind = kind
	}
}

// WithBusyTimeout overrides the store busy timeout in milliseconds.
func WithBusyTimeout(ms int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Store.BusyTimeoutMS = ms
	}
}

// WithMaxSingleWait overrides the per-wait cap in milliseconds.
func WithMaxSingleWait(ms int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Queue.MaxSingleWaitMS = ms
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
