package queue

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"dbqueue/internal/logging"
	"dbqueue/internal/store"
)

const (
	claimInitialBackoff = 5 * time.Millisecond
	claimMaxBackoff     = 250 * time.Millisecond
)

// claimOne claims the best candidate row, or returns (nil, nil) when there is
// none. Each attempt reads the head and conditionally stamps it inside one
// write transaction; a conflict rolls back and retries from a fresh read.
func (q *Queue[T]) claimOne(ctx context.Context) (*Item[T], error) {
	if err := q.checkOpen(); err != nil {
		return nil, err
	}
	if q.sched != nil {
		defer q.sched.refresh(ctx)
	}

	backoff := claimInitialBackoff
	for attempt := 1; ; attempt++ {
		r, err := q.tryClaim(ctx)
		if err == nil {
			if r == nil {
				return nil, nil
			}
			q.logger.Debug("item claimed",
				logging.Int64(logging.FieldItemID, r.id),
				logging.Int("attempts", attempt),
			)
			return q.decode(r)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !store.IsConflict(err) {
			return nil, fmt.Errorf("claim: %w", err)
		}
		if attempt >= q.opts.MaxConflictRetries {
			logging.WarnWithContext(q.logger, "claim gave up after repeated conflicts", "claim_contended",
				logging.Int("attempts", attempt),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "reduce consumer count or raise queue.max_conflict_retries"),
				logging.String(logging.FieldImpact, "poll returned without an item"),
			)
			return nil, fmt.Errorf("%w after %d attempts: %v", ErrContended, attempt, err)
		}

		if err := sleepContext(ctx, jitter(backoff)); err != nil {
			return nil, err
		}
		backoff = min(backoff*2, claimMaxBackoff)
	}
}

func (q *Queue[T]) tryClaim(ctx context.Context) (*record, error) {
	var claimed *record
	err := q.db.InTx(ctx, func(tx store.Querier) error {
		now := q.nowNanos()
		r, err := scanRecord(tx.QueryRowContext(ctx, q.stmt.candidate, q.stmt.candidateArgs(q.opts.Name, now)...))
		if isNoRows(err) {
			return nil
		}
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, q.stmt.claim, now, q.opts.Identity, r.id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("row %d already claimed: %w", r.id, store.ErrConflict)
		}
		r.acquiredAt.Int64, r.acquiredAt.Valid = now, true
		r.acquiredBy.String, r.acquiredBy.Valid = q.opts.Identity, true
		claimed = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// jitter spreads d over [d/2, d].
func jitter(d time.Duration) time.Duration {
	half := d / 2
	if half <= 0 {
		return d
	}
	return half + rand.N(half+1)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
