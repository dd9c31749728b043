package queue

import (
	"database/sql"
	"fmt"
	"time"
)

// record is a raw queue row before the value is decoded.
type record struct {
	id         int64
	queueName  string
	insertedAt int64
	insertedBy string
	acquiredAt sql.NullInt64
	acquiredBy sql.NullString
	status     string
	priority   int
	eligibleAt sql.NullInt64
	value      any
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*record, error) {
	var r record
	if err := scanner.Scan(
		&r.id,
		&r.queueName,
		&r.insertedAt,
		&r.insertedBy,
		&r.acquiredAt,
		&r.acquiredBy,
		&r.status,
		&r.priority,
		&r.eligibleAt,
		&r.value,
	); err != nil {
		return nil, err
	}
	return &r, nil
}

func (q *Queue[T]) decode(r *record) (*Item[T], error) {
	value, err := q.codec.Decode(r.value)
	if err != nil {
		return nil, fmt.Errorf("decode item %d: %w", r.id, err)
	}
	return &Item[T]{
		ID:         r.id,
		Queue:      r.queueName,
		Status:     r.status,
		Priority:   r.priority,
		Value:      value,
		InsertedAt: fromNanos(r.insertedAt),
		InsertedBy: r.insertedBy,
		AcquiredAt: nullNanos(r.acquiredAt),
		AcquiredBy: r.acquiredBy.String,
		EligibleAt: nullNanos(r.eligibleAt),
	}, nil
}

func fromNanos(v int64) time.Time {
	return time.Unix(0, v)
}

func nullNanos(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.Unix(0, v.Int64)
}

func nullableNanos(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UnixNano()
}
