package queue

import (
	"fmt"
	"strings"

	"dbqueue/internal/store"
)

// Ordering decides which eligible row is handed out first.
type Ordering int

const (
	// OrderFIFO hands out rows by ascending id.
	OrderFIFO Ordering = iota
	// OrderByPriority hands out the highest priority first, then ascending id.
	OrderByPriority
)

func (o Ordering) String() string {
	if o == OrderByPriority {
		return "priority"
	}
	return "fifo"
}

func (o Ordering) orderBy() string {
	if o == OrderByPriority {
		return "priority DESC, id ASC"
	}
	return "id ASC"
}

// Eligibility decides which unclaimed rows are candidates.
type Eligibility int

const (
	// EligibleImmediately makes every unclaimed row a candidate.
	EligibleImmediately Eligibility = iota
	// EligibleAfterDelay hides rows whose eligible_at lies in the future.
	EligibleAfterDelay
)

func (e Eligibility) String() string {
	if e == EligibleAfterDelay {
		return "delay"
	}
	return "immediate"
}

// predicate is appended to the candidate WHERE clause. It takes one argument
// (now, unix nanos) when non-empty.
func (e Eligibility) predicate() string {
	if e == EligibleAfterDelay {
		return " AND (eligible_at IS NULL OR eligible_at <= ?)"
	}
	return ""
}

var itemColumns = strings.Join(store.Columns, ", ")

// statements holds the SQL for one table, eligibility, and ordering. Peek and
// claim share the candidate query so they always agree on the head.
type statements struct {
	eligibility Eligibility

	insert       string
	candidate    string
	claim        string
	size         string
	clear        string
	getStatus    string
	setStatus    string
	cleanup      string
	nextEligible string
	stats        string
}

func buildStatements(table string, e Eligibility, o Ordering) (statements, error) {
	t, err := store.QuoteTable(table)
	if err != nil {
		return statements{}, err
	}
	return statements{
		eligibility: e,
		insert: fmt.Sprintf(`INSERT INTO %s (queue_name, inserted_at, inserted_by, status, priority, eligible_at, value)
VALUES (?, ?, ?, '%s', ?, ?, ?)`, t, StatusNew),
		candidate: fmt.Sprintf(`SELECT %s FROM %s
WHERE queue_name = ? AND acquired_at IS NULL%s
ORDER BY %s
LIMIT 1`, itemColumns, t, e.predicate(), o.orderBy()),
		claim:     fmt.Sprintf(`UPDATE %s SET acquired_at = ?, acquired_by = ? WHERE id = ? AND acquired_at IS NULL`, t),
		size:      fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE queue_name = ? AND acquired_at IS NULL`, t),
		clear:     fmt.Sprintf(`DELETE FROM %s WHERE queue_name = ?`, t),
		getStatus: fmt.Sprintf(`SELECT status FROM %s WHERE id = ?`, t),
		setStatus: fmt.Sprintf(`UPDATE %s SET status = ? WHERE id = ?`, t),
		cleanup: fmt.Sprintf(`DELETE FROM %s
WHERE queue_name = ? AND acquired_at IS NOT NULL AND acquired_at < ?`, t),
		nextEligible: fmt.Sprintf(`SELECT MIN(eligible_at) FROM %s
WHERE queue_name = ? AND acquired_at IS NULL AND eligible_at > ?`, t),
		stats: statsQuery(t, "WHERE queue_name = ?"),
	}, nil
}

func statsQuery(table, where string) string {
	return fmt.Sprintf(`SELECT queue_name,
    COALESCE(SUM(CASE WHEN acquired_at IS NULL THEN 1 ELSE 0 END), 0),
    COALESCE(SUM(CASE WHEN acquired_at IS NULL AND eligible_at > ? THEN 1 ELSE 0 END), 0),
    COALESCE(SUM(CASE WHEN acquired_at IS NOT NULL THEN 1 ELSE 0 END), 0),
    MIN(CASE WHEN acquired_at IS NULL THEN inserted_at END)
FROM %s %s
GROUP BY queue_name
ORDER BY queue_name`, table, where)
}

func (s statements) candidateArgs(queueName string, now int64) []any {
	if s.eligibility == EligibleAfterDelay {
		return []any{queueName, now}
	}
	return []any{queueName}
}
