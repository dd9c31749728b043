package queue

import (
	"context"
	"fmt"
	"time"

	"dbqueue/internal/logging"
)

// Add enqueues value with priority 0. It returns the new row id.
func (q *Queue[T]) Add(ctx context.Context, value T) (int64, error) {
	return q.AddWith(ctx, value, AddOptions{})
}

// AddPriority enqueues value with the given priority. Higher priorities are
// claimed first on priority-ordered queues; FIFO queues store but ignore it.
func (q *Queue[T]) AddPriority(ctx context.Context, value T, priority int) (int64, error) {
	return q.AddWith(ctx, value, AddOptions{Priority: priority})
}

// AddWith enqueues value. On a delay-capable queue the row becomes eligible
// after opts.Delay, or after value.Delay() when value implements Delayer and
// opts.Delay is zero.
func (q *Queue[T]) AddWith(ctx context.Context, value T, opts AddOptions) (int64, error) {
	if err := q.checkOpen(); err != nil {
		return 0, err
	}

	delay := opts.Delay
	if delay == 0 && q.opts.Delay {
		if d, ok := any(value).(Delayer); ok {
			delay = d.Delay()
		}
	}
	if delay > 0 && !q.opts.Delay {
		return 0, ErrDelayUnsupported
	}
	if delay < 0 {
		delay = 0
	}

	stored, err := q.codec.Encode(value)
	if err != nil {
		return 0, fmt.Errorf("add: %w", err)
	}

	now := q.opts.Now()
	var eligibleAt time.Time
	if delay > 0 {
		eligibleAt = now.Add(delay)
	}

	res, err := q.db.ExecRetry(ctx, q.stmt.insert,
		q.opts.Name,
		now.UnixNano(),
		q.opts.Identity,
		opts.Priority,
		nullableNanos(eligibleAt),
		stored,
	)
	if err != nil {
		return 0, fmt.Errorf("add: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("add: read id: %w", err)
	}

	q.logger.Debug("item added",
		logging.Int64(logging.FieldItemID, id),
		logging.Int("priority", opts.Priority),
		logging.Duration("delay", delay),
	)

	if delay > 0 {
		q.sched.refresh(ctx)
	} else {
		q.wake.Signal()
	}
	return id, nil
}
