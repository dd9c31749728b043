package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"dbqueue/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "dbqueue")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Store.Path != filepath.Join(wantData, "queue.db") {
		t.Fatalf("unexpected store path: %q", cfg.Store.Path)
	}
	if cfg.Store.Table != "queue" {
		t.Fatalf("unexpected table: %q", cfg.Store.Table)
	}
	if cfg.Queue.Name != "default" {
		t.Fatalf("unexpected queue name: %q", cfg.Queue.Name)
	}
	if !cfg.Queue.Priority {
		t.Fatal("expected priority ordering enabled by default")
	}
	if cfg.Queue.Delay {
		t.Fatal("expected delay disabled by default")
	}
	if cfg.MaxSingleWait().Milliseconds() != 1000 {
		t.Fatalf("unexpected max single wait: %s", cfg.MaxSingleWait())
	}
	if cfg.TakeBlockingTime().Seconds() != 60 {
		t.Fatalf("unexpected take blocking time: %s", cfg.TakeBlockingTime())
	}
	if cfg.Wake.Kind != config.WakeStore {
		t.Fatalf("unexpected wake kind: %q", cfg.Wake.Kind)
	}
	if cfg.Maintenance.RetentionDays != 10 {
		t.Fatalf("unexpected retention days: %d", cfg.Maintenance.RetentionDays)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unexpected logging format: %q", cfg.Logging.Format)
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[paths]
data_dir = "~/queues"

[store]
table = "jobs"

[queue]
name = "emails"
identity = "worker-7"
priority = false
delay = true
max_single_wait_ms = 250

[logging]
format = "JSON"
level = "Debug"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "queues") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.Store.Path != filepath.Join(tempHome, "queues", "queue.db") {
		t.Fatalf("expected store path under data dir, got %q", cfg.Store.Path)
	}
	if cfg.Store.Table != "jobs" {
		t.Fatalf("unexpected table: %q", cfg.Store.Table)
	}
	if cfg.Queue.Name != "emails" || cfg.Queue.Identity != "worker-7" {
		t.Fatalf("unexpected queue section: %+v", cfg.Queue)
	}
	if cfg.Queue.Priority || !cfg.Queue.Delay {
		t.Fatalf("unexpected ordering flags: %+v", cfg.Queue)
	}
	if cfg.Queue.MaxSingleWaitMS != 250 {
		t.Fatalf("unexpected max single wait: %d", cfg.Queue.MaxSingleWaitMS)
	}
	if cfg.Queue.TakeBlockingSeconds != 60 {
		t.Fatalf("expected untouched default take blocking seconds, got %d", cfg.Queue.TakeBlockingSeconds)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging section: %+v", cfg.Logging)
	}
}

func TestLoadRedisAddrFromEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DBQUEUE_REDIS_ADDR", "127.0.0.1:6379")
	t.Setenv("DBQUEUE_REDIS_PASSWORD", "secret")

	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[wake]\nkind = \"redis\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Wake.RedisAddr != "127.0.0.1:6379" {
		t.Fatalf("expected redis addr from env, got %q", cfg.Wake.RedisAddr)
	}
	if cfg.Wake.RedisPassword != "secret" {
		t.Fatalf("expected redis password from env, got %q", cfg.Wake.RedisPassword)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"table", func(c *config.Config) { c.Store.Table = "queue; DROP TABLE x" }, "store.table"},
		{"wake kind", func(c *config.Config) { c.Wake.Kind = "carrier-pigeon" }, "wake.kind"},
		{"redis addr", func(c *config.Config) { c.Wake.Kind = config.WakeRedis }, "wake.redis_addr"},
		{"retention", func(c *config.Config) { c.Maintenance.RetentionDays = -1 }, "maintenance.retention_days"},
		{"retries", func(c *config.Config) { c.Queue.MaxConflictRetries = 0 }, "queue.max_conflict_retries"},
		{"schedule", func(c *config.Config) { c.Maintenance.Schedule = "every tuesday" }, "maintenance.schedule"},
		{"ntfy topic", func(c *config.Config) { c.Maintenance.NtfyTopic = "alerts" }, "maintenance.ntfy_topic"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Store.Path = filepath.Join(t.TempDir(), "queue.db")
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadRejectsDirectoryPath(t *testing.T) {
	dir := t.TempDir()
	if _, _, _, err := config.Load(dir); err == nil {
		t.Fatal("expected error for directory config path")
	}
}

func TestCreateSampleProducesParsableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample config is not valid TOML: %v", err)
	}
	if decoded.Queue.MaxConflictRetries != config.Default().Queue.MaxConflictRetries {
		t.Fatalf("sample retries drifted from defaults: %d", decoded.Queue.MaxConflictRetries)
	}
	if decoded.Wake.Kind != config.Default().Wake.Kind {
		t.Fatalf("sample wake kind drifted from defaults: %q", decoded.Wake.Kind)
	}
}

func TestEnsureDirectoriesCreatesStoreParent(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Store.Path = filepath.Join(base, "db", "queue.db")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir, filepath.Dir(cfg.Store.Path)} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
}
