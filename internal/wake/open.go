package wake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"dbqueue/internal/config"
	"dbqueue/internal/store"
)

// ChannelName returns the wake channel identifier shared by every process
// using the logical queue name stored in table.
func ChannelName(table, queueName string) string {
	return "dbqueue:" + table + ":" + queueName
}

// Open builds the wake channel selected by cfg.Wake.Kind.
func Open(ctx context.Context, cfg *config.Config, db *store.Store, channel string, logger *slog.Logger) (Channel, error) {
	if cfg == nil {
		return nil, errors.New("wake: config is required")
	}
	switch cfg.Wake.Kind {
	case config.WakeLocal:
		return NewLocal(), nil
	case config.WakeStore, "":
		if db == nil {
			return nil, errors.New("wake: store backend requires a database")
		}
		return NewStore(db, channel, cfg.WakePollInterval(), logger), nil
	case config.WakeRedis:
		client := NewRedisClient(cfg)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("wake: ping redis %s: %w", cfg.Wake.RedisAddr, err)
		}
		r, err := NewRedis(ctx, client, channel, logger)
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("wake: subscribe %s: %w", channel, err)
		}
		r.closeSub = chainClose(r.closeSub, client.Close)
		return r, nil
	default:
		return nil, fmt.Errorf("wake: unsupported kind %q", cfg.Wake.Kind)
	}
}

// NewRedisClient builds a go-redis client from the wake section.
func NewRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Wake.RedisAddr,
		Password: cfg.Wake.RedisPassword,
		DB:       cfg.Wake.RedisDB,
	})
}

func chainClose(fns ...func() error) func() error {
	return func() error {
		var errs []error
		for _, fn := range fns {
			if fn == nil {
				continue
			}
			if err := fn(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
