package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateWake(); err != nil {
		return err
	}
	if err := c.validateMaintenance(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStore() error {
	if strings.TrimSpace(c.Store.Path) == "" {
		return errors.New("store.path must be set")
	}
	if !tableNamePattern.MatchString(c.Store.Table) {
		return fmt.Errorf("store.table %q must be a plain SQL identifier", c.Store.Table)
	}
	return nil
}

func (c *Config) validateQueue() error {
	if strings.TrimSpace(c.Queue.Name) == "" {
		return errors.New("queue.name must be set")
	}
	return ensurePositiveMap(map[string]int{
		"queue.max_single_wait_ms":    c.Queue.MaxSingleWaitMS,
		"queue.take_blocking_seconds": c.Queue.TakeBlockingSeconds,
		"queue.max_conflict_retries":  c.Queue.MaxConflictRetries,
		"queue.delay_floor_ms":        c.Queue.DelayFloorMS,
		"store.busy_timeout_ms":       c.Store.BusyTimeoutMS,
		"wake.poll_interval_ms":       c.Wake.PollIntervalMS,
	})
}

func (c *Config) validateWake() error {
	switch c.Wake.Kind {
	case WakeStore, WakeLocal:
		return nil
	case WakeRedis:
		if c.Wake.RedisAddr == "" {
			return errors.New("wake.redis_addr must be set when wake.kind is \"redis\" (or set DBQUEUE_REDIS_ADDR)")
		}
		if c.Wake.RedisDB < 0 {
			return errors.New("wake.redis_db must be >= 0")
		}
		return nil
	default:
		return fmt.Errorf("wake.kind: unsupported value %q (want store, redis, or local)", c.Wake.Kind)
	}
}

func (c *Config) validateMaintenance() error {
	if c.Maintenance.RetentionDays < 0 {
		return errors.New("maintenance.retention_days must be >= 0")
	}
	if c.Maintenance.Schedule == "" {
		return errors.New("maintenance.schedule must be set")
	}
	if _, err := cron.ParseStandard(c.Maintenance.Schedule); err != nil {
		return fmt.Errorf("maintenance.schedule: %w", err)
	}
	if topic := c.Maintenance.NtfyTopic; topic != "" &&
		!strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("maintenance.ntfy_topic %q must be an http(s) URL", topic)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
