package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidTable is returned for table names that are not plain identifiers.
var ErrInvalidTable = errors.New("store: invalid table name")

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Columns lists the queue table columns in scan order.
var Columns = []string{
	"id",
	"queue_name",
	"inserted_at",
	"inserted_by",
	"acquired_at",
	"acquired_by",
	"status",
	"priority",
	"eligible_at",
	"value",
}

const tableDDL = `
CREATE TABLE IF NOT EXISTS %[1]s (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    queue_name TEXT NOT NULL,
    inserted_at INTEGER NOT NULL,
    inserted_by TEXT NOT NULL DEFAULT '',
    acquired_at INTEGER,
    acquired_by TEXT,
    status TEXT NOT NULL DEFAULT 'NEW',
    priority INTEGER NOT NULL DEFAULT 0,
    eligible_at INTEGER,
    value BLOB
);

CREATE INDEX IF NOT EXISTS %[2]s ON %[1]s (queue_name, acquired_at, priority DESC, id);
CREATE INDEX IF NOT EXISTS %[3]s ON %[1]s (queue_name, eligible_at);
`

// QuoteTable validates name and returns it quoted for use in SQL text.
func QuoteTable(name string) (string, error) {
	if !identPattern.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTable, name)
	}
	return `"` + name + `"`, nil
}

// EnsureTable creates the queue table and its claim indexes when missing.
func (s *Store) EnsureTable(ctx context.Context, table string) error {
	quoted, err := QuoteTable(table)
	if err != nil {
		return err
	}
	ddl := fmt.Sprintf(tableDDL, quoted, `"`+table+`_claim_idx"`, `"`+table+`_eligible_idx"`)
	ctx = ensureContext(ctx)
	return RetryOnConflict(ctx, func() error {
		return s.InTx(ctx, func(conn Querier) error {
			if _, err := conn.ExecContext(ctx, ddl); err != nil {
				return fmt.Errorf("create table %s: %w", table, err)
			}
			return nil
		})
	})
}

// TableExists reports whether table is present in the database.
func (s *Store) TableExists(ctx context.Context, table string) (bool, error) {
	var name string
	err := s.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup table %s: %w", table, err)
	}
	return true, nil
}
