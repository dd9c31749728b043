package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"dbqueue/internal/codec"
	"dbqueue/internal/config"
	"dbqueue/internal/logging"
	"dbqueue/internal/queue"
	"dbqueue/internal/store"
)

type commandContext struct {
	configFlag *string
	queueFlag  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, queueFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		queueFlag:  queueFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.queueFlag != nil {
			if name := strings.TrimSpace(*c.queueFlag); name != "" {
				cfg.Queue.Name = name
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() *slog.Logger {
	cfg, err := c.ensureConfig()
	if err != nil {
		return logging.NewNop()
	}
	logger, err := logging.NewFromConfig(cfg, "")
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

// withStore opens the configured store for the duration of fn.
func (c *commandContext) withStore(fn func(cfg *config.Config, db *store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	db, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()
	return fn(cfg, db)
}

// withQueue opens the configured queue of string payloads for the duration
// of fn.
func (c *commandContext) withQueue(cmd *cobra.Command, fn func(q *queue.Queue[string]) error) error {
	return c.withStore(func(cfg *config.Config, db *store.Store) error {
		q, err := queue.Open(cmd.Context(), cfg, db, codec.String{}, c.logger())
		if err != nil {
			return fmt.Errorf("open queue: %w", err)
		}
		defer q.Close()
		return fn(q)
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
