package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.normalizeQueue()
	if err := c.normalizeWake(); err != nil {
		return err
	}
	c.normalizeMaintenance()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStore() error {
	var err error
	c.Store.Path = strings.TrimSpace(c.Store.Path)
	if c.Store.Path == "" {
		c.Store.Path = filepath.Join(c.Paths.DataDir, defaultStoreFile)
	}
	if c.Store.Path, err = expandPath(c.Store.Path); err != nil {
		return fmt.Errorf("store.path: %w", err)
	}
	c.Store.Table = strings.TrimSpace(c.Store.Table)
	if c.Store.Table == "" {
		c.Store.Table = defaultTable
	}
	if c.Store.BusyTimeoutMS <= 0 {
		c.Store.BusyTimeoutMS = defaultBusyTimeoutMS
	}
	return nil
}

func (c *Config) normalizeQueue() {
	c.Queue.Name = strings.TrimSpace(c.Queue.Name)
	if c.Queue.Name == "" {
		c.Queue.Name = defaultQueueName
	}
	c.Queue.Identity = strings.TrimSpace(c.Queue.Identity)
	if c.Queue.Identity == "" {
		if value, ok := os.LookupEnv("DBQUEUE_IDENTITY"); ok {
			c.Queue.Identity = strings.TrimSpace(value)
		}
	}
	if c.Queue.MaxSingleWaitMS <= 0 {
		c.Queue.MaxSingleWaitMS = defaultMaxSingleWaitMS
	}
	if c.Queue.TakeBlockingSeconds <= 0 {
		c.Queue.TakeBlockingSeconds = defaultTakeBlockingSeconds
	}
	if c.Queue.MaxConflictRetries <= 0 {
		c.Queue.MaxConflictRetries = defaultMaxConflictRetries
	}
	if c.Queue.DelayFloorMS <= 0 {
		c.Queue.DelayFloorMS = defaultDelayFloorMS
	}
}

func (c *Config) normalizeWake() error {
	c.Wake.Kind = strings.ToLower(strings.TrimSpace(c.Wake.Kind))
	if c.Wake.Kind == "" {
		c.Wake.Kind = defaultWakeKind
	}
	if c.Wake.PollIntervalMS <= 0 {
		c.Wake.PollIntervalMS = defaultWakePollIntervalMS
	}
	c.Wake.RedisAddr = strings.TrimSpace(c.Wake.RedisAddr)
	if c.Wake.RedisAddr == "" {
		if value, ok := os.LookupEnv("DBQUEUE_REDIS_ADDR"); ok {
			c.Wake.RedisAddr = strings.TrimSpace(value)
		}
	}
	if c.Wake.RedisPassword == "" {
		if value, ok := os.LookupEnv("DBQUEUE_REDIS_PASSWORD"); ok {
			c.Wake.RedisPassword = value
		}
	}
	if value, ok := os.LookupEnv("DBQUEUE_REDIS_DB"); ok && c.Wake.RedisDB == 0 {
		db, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("DBQUEUE_REDIS_DB: %w", err)
		}
		c.Wake.RedisDB = db
	}
	return nil
}

func (c *Config) normalizeMaintenance() {
	c.Maintenance.Schedule = strings.TrimSpace(c.Maintenance.Schedule)
	if c.Maintenance.Schedule == "" {
		c.Maintenance.Schedule = defaultSchedule
	}
	c.Maintenance.APIBind = strings.TrimSpace(c.Maintenance.APIBind)
	if c.Maintenance.APIToken == "" {
		if value, ok := os.LookupEnv("DBQUEUE_API_TOKEN"); ok {
			c.Maintenance.APIToken = strings.TrimSpace(value)
		}
	}
	c.Maintenance.NtfyTopic = strings.TrimSpace(c.Maintenance.NtfyTopic)
	if c.Maintenance.NtfyRequestTimeout <= 0 {
		c.Maintenance.NtfyRequestTimeout = defaultNtfyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
