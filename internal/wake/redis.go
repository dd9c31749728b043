package wake

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"dbqueue/internal/logging"
)

type publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Redis is a wake channel backed by Redis pub/sub. One subscription per
// process fans incoming messages out to local waiters.
type Redis struct {
	pub     publisher
	channel string
	local   *Local
	logger  *slog.Logger

	signals   chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup
	closeOne  sync.Once
	closeSub  func() error
	onPublish func(error)
}

// NewRedis subscribes to channel on client and returns a wake channel that
// publishes to it.
func NewRedis(ctx context.Context, client *redis.Client, channel string, logger *slog.Logger) (*Redis, error) {
	sub := client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}
	return newRedis(client, channel, sub.Channel(), sub.Close, logger), nil
}

func newRedis(pub publisher, channel string, messages <-chan *redis.Message, closeSub func() error, logger *slog.Logger) *Redis {
	r := &Redis{
		pub:      pub,
		channel:  channel,
		local:    NewLocal(),
		logger:   logging.NewComponentLogger(logger, "wake").With(logging.String("channel", channel)),
		signals:  make(chan struct{}, 1),
		done:     make(chan struct{}),
		closeSub: closeSub,
	}
	r.wg.Add(2)
	go r.publishLoop()
	go r.receiveLoop(messages)
	return r
}

// Signal wakes local waiters and publishes to other processes. Signals
// raised while a publish is pending coalesce.
func (r *Redis) Signal() {
	r.local.Signal()
	select {
	case r.signals <- struct{}{}:
	default:
	}
}

// AwaitUntil waits for a local signal or a message on the subscription.
func (r *Redis) AwaitUntil(ctx context.Context, deadline time.Time) bool {
	return r.local.AwaitUntil(ctx, deadline)
}

func (r *Redis) publishLoop() {
	defer r.wg.Done()
	for {
		select {
		case <-r.done:
			return
		case <-r.signals:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := r.pub.Publish(ctx, r.channel, "1").Err()
			cancel()
			if err != nil {
				logging.WarnWithContext(r.logger, "wake publish failed", "wake_publish_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check redis connectivity"),
					logging.String(logging.FieldImpact, "consumers in other processes wake on their next bounded wait"),
				)
			}
			if r.onPublish != nil {
				r.onPublish(err)
			}
		}
	}
}

func (r *Redis) receiveLoop(messages <-chan *redis.Message) {
	defer r.wg.Done()
	for {
		select {
		case <-r.done:
			return
		case _, ok := <-messages:
			if !ok {
				return
			}
			r.local.Signal()
		}
	}
}

// Close unsubscribes and stops the background goroutines.
func (r *Redis) Close() error {
	var err error
	r.closeOne.Do(func() {
		close(r.done)
		if r.closeSub != nil {
			err = r.closeSub()
		}
		r.wg.Wait()
	})
	return err
}
