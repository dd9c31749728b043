package wake

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSignalPublishes(t *testing.T) {
	client, mock := redismock.NewClientMock()
	messages := make(chan *redis.Message)
	r := newRedis(client, "dbqueue:queue:default", messages, nil, nil)
	published := make(chan error, 1)
	r.onPublish = func(err error) { published <- err }
	defer r.Close()

	mock.ExpectPublish("dbqueue:queue:default", "1").SetVal(1)

	r.Signal()

	select {
	case err := <-published:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("publish never happened")
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisSignalSurvivesPublishError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	r := newRedis(client, "jobs", make(chan *redis.Message), nil, nil)
	published := make(chan error, 1)
	r.onPublish = func(err error) { published <- err }
	defer r.Close()

	mock.ExpectPublish("jobs", "1").SetErr(errors.New("connection refused"))

	r.Signal()

	select {
	case err := <-published:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("publish never attempted")
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisMessageWakesWaiter(t *testing.T) {
	client, _ := redismock.NewClientMock()
	messages := make(chan *redis.Message, 1)
	r := newRedis(client, "jobs", messages, nil, nil)
	defer r.Close()

	result := make(chan bool, 1)
	go func() {
		result <- r.AwaitUntil(context.Background(), time.Now().Add(3*time.Second))
	}()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case woke := <-result:
			assert.True(t, woke)
			return
		case <-ticker.C:
			select {
			case messages <- &redis.Message{Channel: "jobs", Payload: "1"}:
			default:
			}
		case <-timeout:
			t.Fatal("waiter never woke")
		}
	}
}

func TestRedisCloseClosesSubscription(t *testing.T) {
	client, _ := redismock.NewClientMock()
	closed := false
	r := newRedis(client, "jobs", make(chan *redis.Message), func() error {
		closed = true
		return nil
	}, nil)

	require.NoError(t, r.Close())
	assert.True(t, closed)
	require.NoError(t, r.Close())
}
