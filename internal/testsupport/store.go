package testsupport

import (
	"context"
	"testing"

	"dbqueue/internal/codec"
	"dbqueue/internal/config"
	"dbqueue/internal/logging"
	"dbqueue/internal/queue"
	"dbqueue/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	s, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// MustOpenQueue opens a queue over db using cfg and registers cleanup.
func MustOpenQueue[T any](t testing.TB, cfg *config.Config, db *store.Store, c codec.Codec[T]) *queue.Queue[T] {
	t.Helper()

	q, err := queue.Open(context.Background(), cfg, db, c, logging.NewNop())
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		q.Close()
	})
	return q
}

// MustAdd enqueues value and returns its id.
func MustAdd[T any](t testing.TB, q *queue.Queue[T], value T, opts queue.AddOptions) int64 {
	t.Helper()

	id, err := q.AddWith(context.Background(), value, opts)
	if err != nil {
		t.Fatalf("AddWith(%v): %v", value, err)
	}
	return id
}
