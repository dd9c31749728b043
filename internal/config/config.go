package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Store contains configuration for the shared relational store.
type Store struct {
	// Path is the SQLite database file shared by every producer and consumer.
	// Defaults to <data_dir>/queue.db.
	Path          string `toml:"path"`
	Table         string `toml:"table"`
	BusyTimeoutMS int    `toml:"busy_timeout_ms"`
}

// Queue contains the logical queue and claim protocol tuning.
type Queue struct {
	Name                string `toml:"name"`
	Identity            string `toml:"identity"`
	Priority            bool   `toml:"priority"`
	Delay               bool   `toml:"delay"`
	MaxSingleWaitMS     int    `toml:"max_single_wait_ms"`
	TakeBlockingSeconds int    `toml:"take_blocking_seconds"`
	MaxConflictRetries  int    `toml:"max_conflict_retries"`
	DelayFloorMS        int    `toml:"delay_floor_ms"`
}

// Wake contains configuration for the cross-process wake channel.
type Wake struct {
	// Kind selects the backend: "store" polls a signal row in the shared
	// database, "redis" uses pub/sub, "local" only wakes waiters in this
	// process.
	Kind           string `toml:"kind"`
	PollIntervalMS int    `toml:"poll_interval_ms"`
	RedisAddr      string `toml:"redis_addr"`
	RedisPassword  string `toml:"redis_password"`
	RedisDB        int    `toml:"redis_db"`
}

// Maintenance contains configuration for the cleanup daemon.
type Maintenance struct {
	RetentionDays int    `toml:"retention_days"`
	Schedule      string `toml:"schedule"`
	AllQueues     bool   `toml:"all_queues"`
	// APIBind enables the daemon's status API when set, e.g. "127.0.0.1:7487".
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
	// NtfyTopic is the full ntfy topic URL for sweep failure alerts.
	NtfyTopic          string `toml:"ntfy_topic"`
	NtfyRequestTimeout int    `toml:"ntfy_request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for dbqueue.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Store: SQLite file, physical table, busy timeout
//   - Queue: logical queue name, identity, ordering, claim tuning
//   - Wake: cross-process wake channel backend
//   - Maintenance: cleanup retention and schedule for dbqueued
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Store       Store       `toml:"store"`
	Queue       Queue       `toml:"queue"`
	Wake        Wake        `toml:"wake"`
	Maintenance Maintenance `toml:"maintenance"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if os.IsNotExist(err) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %q is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("dbqueue.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories and the directory
// holding the store file.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir}
	if strings.TrimSpace(c.Store.Path) != "" {
		dirs = append(dirs, filepath.Dir(c.Store.Path))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// BusyTimeout returns the store busy timeout as a duration.
func (c *Config) BusyTimeout() time.Duration {
	return time.Duration(c.Store.BusyTimeoutMS) * time.Millisecond
}

// MaxSingleWait returns the cap applied to a single blocking wait.
func (c *Config) MaxSingleWait() time.Duration {
	return time.Duration(c.Queue.MaxSingleWaitMS) * time.Millisecond
}

// TakeBlockingTime returns the bounded per-iteration timeout used by Take.
func (c *Config) TakeBlockingTime() time.Duration {
	return time.Duration(c.Queue.TakeBlockingSeconds) * time.Second
}

// DelayFloor returns the minimum delay the delay scheduler arms a timer for.
func (c *Config) DelayFloor() time.Duration {
	return time.Duration(c.Queue.DelayFloorMS) * time.Millisecond
}

// WakePollInterval returns how often the store wake channel re-reads its signal row.
func (c *Config) WakePollInterval() time.Duration {
	return time.Duration(c.Wake.PollIntervalMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
