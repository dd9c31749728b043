package queue

import (
	"context"
	"fmt"
	"time"
)

// PeekItem returns the row the next claim would take, without claiming it,
// or nil when no row is eligible.
func (q *Queue[T]) PeekItem(ctx context.Context) (*Item[T], error) {
	if err := q.checkOpen(); err != nil {
		return nil, err
	}
	row := q.db.QueryRowContext(ctx, q.stmt.candidate, q.stmt.candidateArgs(q.opts.Name, q.nowNanos())...)
	r, err := scanRecord(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("peek: %w", err)
	}
	return q.decode(r)
}

// Peek returns the head value without claiming it. ok is false when nothing
// is eligible.
func (q *Queue[T]) Peek(ctx context.Context) (value T, ok bool, err error) {
	item, err := q.PeekItem(ctx)
	return unwrap(item, err)
}

// PollItem claims the head row without blocking, or returns nil when no row
// is eligible.
func (q *Queue[T]) PollItem(ctx context.Context) (*Item[T], error) {
	return q.claimOne(ctx)
}

// Poll claims the head value without blocking. ok is false when nothing is
// eligible.
func (q *Queue[T]) Poll(ctx context.Context) (value T, ok bool, err error) {
	item, err := q.PollItem(ctx)
	return unwrap(item, err)
}

// PollItemTimeout claims the head row, waiting up to timeout for one to
// become available. It polls at least every MaxSingleWait whether or not the
// wake channel fires, and returns nil once the timeout has elapsed.
func (q *Queue[T]) PollItemTimeout(ctx context.Context, timeout time.Duration) (*Item[T], error) {
	deadline := time.Now().Add(timeout)
	for {
		item, err := q.PollItem(ctx)
		if err != nil || item != nil {
			return item, err
		}
		now := time.Now()
		if !now.Before(deadline) {
			return nil, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q.wake.AwaitUntil(ctx, minTime(deadline, now.Add(q.opts.MaxSingleWait)))
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

// PollTimeout is PollItemTimeout returning only the value.
func (q *Queue[T]) PollTimeout(ctx context.Context, timeout time.Duration) (value T, ok bool, err error) {
	item, err := q.PollItemTimeout(ctx, timeout)
	return unwrap(item, err)
}

// TakeItem blocks until a row is claimed or ctx ends. It waits in bounded
// rounds of TakeBlockingTime so cancellation is observed between rounds as
// well as within them.
func (q *Queue[T]) TakeItem(ctx context.Context) (*Item[T], error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item, err := q.PollItemTimeout(ctx, q.opts.TakeBlockingTime)
		if err != nil || item != nil {
			return item, err
		}
	}
}

// Take blocks until a value is claimed or ctx ends.
func (q *Queue[T]) Take(ctx context.Context) (T, error) {
	item, err := q.TakeItem(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	return item.Value, nil
}

// DrainTo claims up to limit eligible values without blocking. A limit of
// zero or less drains everything eligible. Values claimed before an error are
// returned with it.
func (q *Queue[T]) DrainTo(ctx context.Context, limit int) ([]T, error) {
	var out []T
	for limit <= 0 || len(out) < limit {
		value, ok, err := q.Poll(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			break
		}
		out = append(out, value)
	}
	return out, nil
}

func unwrap[T any](item *Item[T], err error) (T, bool, error) {
	if err != nil || item == nil {
		var zero T
		return zero, false, err
	}
	return item.Value, true, nil
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
