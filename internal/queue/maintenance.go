package queue

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dbqueue/internal/logging"
	"dbqueue/internal/store"
)

// Size counts unclaimed rows in this queue, including rows still delayed.
func (q *Queue[T]) Size(ctx context.Context) (int, error) {
	if err := q.checkOpen(); err != nil {
		return 0, err
	}
	var n int
	if err := q.db.QueryRowContext(ctx, q.stmt.size, q.opts.Name).Scan(&n); err != nil {
		return 0, fmt.Errorf("size: %w", err)
	}
	return n, nil
}

// IsEmpty reports whether Size is zero.
func (q *Queue[T]) IsEmpty(ctx context.Context) (bool, error) {
	n, err := q.Size(ctx)
	return n == 0, err
}

// Clear deletes every row of this queue, claimed or not. Other queues in the
// same table are untouched.
func (q *Queue[T]) Clear(ctx context.Context) (int64, error) {
	if err := q.checkOpen(); err != nil {
		return 0, err
	}
	res, err := q.db.ExecRetry(ctx, q.stmt.clear, q.opts.Name)
	if err != nil {
		return 0, fmt.Errorf("clear: %w", err)
	}
	n, _ := res.RowsAffected()
	q.logger.Info("queue cleared", logging.Int64("removed", n))
	return n, nil
}

// UpdateStatus sets the free-form status of row id. It reports false when
// no such row exists. Status never affects claiming.
func (q *Queue[T]) UpdateStatus(ctx context.Context, id int64, status string) (bool, error) {
	if err := q.checkOpen(); err != nil {
		return false, err
	}
	res, err := q.db.ExecRetry(ctx, q.stmt.setStatus, status, id)
	if err != nil {
		return false, fmt.Errorf("update status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update status: %w", err)
	}
	return n > 0, nil
}

// GetStatus returns the status of row id, or ok=false when it does not exist.
func (q *Queue[T]) GetStatus(ctx context.Context, id int64) (status string, ok bool, err error) {
	if err := q.checkOpen(); err != nil {
		return "", false, err
	}
	err = q.db.QueryRowContext(ctx, q.stmt.getStatus, id).Scan(&status)
	if isNoRows(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get status: %w", err)
	}
	return status, true, nil
}

// Cleanup deletes claimed rows of this queue acquired more than days ago.
// Unclaimed rows are never removed.
func (q *Queue[T]) Cleanup(ctx context.Context, days int) (int64, error) {
	if err := q.checkOpen(); err != nil {
		return 0, err
	}
	cutoff, err := retentionCutoff(q.opts.Now(), days)
	if err != nil {
		return 0, err
	}
	res, err := q.db.ExecRetry(ctx, q.stmt.cleanup, q.opts.Name, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup: %w", err)
	}
	n, _ := res.RowsAffected()
	q.logger.Info("cleanup complete",
		logging.Int("retention_days", days),
		logging.Int64("removed", n),
	)
	return n, nil
}

// CleanupAll is Cleanup across every queue in the table.
func (q *Queue[T]) CleanupAll(ctx context.Context, days int) (int64, error) {
	if err := q.checkOpen(); err != nil {
		return 0, err
	}
	return CleanupTable(ctx, q.db, q.opts.Table, days, q.opts.Now())
}

// Stats summarizes this queue. A queue with no rows reports zero counts.
func (q *Queue[T]) Stats(ctx context.Context) (Stats, error) {
	if err := q.checkOpen(); err != nil {
		return Stats{}, err
	}
	rows, err := q.db.QueryContext(ctx, q.stmt.stats, q.nowNanos(), q.opts.Name)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	all, err := scanStats(rows)
	if err != nil {
		return Stats{}, err
	}
	if len(all) == 0 {
		return Stats{Queue: q.opts.Name}, nil
	}
	return all[0], nil
}

// CleanupTable deletes claimed rows of every queue in table acquired more
// than days before now.
func CleanupTable(ctx context.Context, db DB, table string, days int, now time.Time) (int64, error) {
	t, err := store.QuoteTable(table)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cutoff, err := retentionCutoff(now, days)
	if err != nil {
		return 0, err
	}
	res, err := db.ExecRetry(ctx, fmt.Sprintf(`DELETE FROM %s WHERE acquired_at IS NOT NULL AND acquired_at < ?`, t), cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup %s: %w", table, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// StatsAll summarizes every queue present in table, ordered by name.
func StatsAll(ctx context.Context, db store.Querier, table string, now time.Time) ([]Stats, error) {
	t, err := store.QuoteTable(table)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	rows, err := db.QueryContext(ctx, statsQuery(t, ""), now.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return scanStats(rows)
}

func scanStats(rows *sql.Rows) ([]Stats, error) {
	defer rows.Close()
	var out []Stats
	for rows.Next() {
		var (
			s      Stats
			oldest sql.NullInt64
		)
		if err := rows.Scan(&s.Queue, &s.Unclaimed, &s.Delayed, &s.Claimed, &oldest); err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
		s.OldestUnclaimed = nullNanos(oldest)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return out, nil
}

func retentionCutoff(now time.Time, days int) (int64, error) {
	if days < 0 {
		return 0, fmt.Errorf("%w: retention days must be >= 0, got %d", ErrInvalidConfig, days)
	}
	return now.Add(-time.Duration(days) * 24 * time.Hour).UnixNano(), nil
}
