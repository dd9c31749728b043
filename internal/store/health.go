package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// Health captures diagnostic information about the database and one queue table.
type Health struct {
	Path           string
	Exists         bool
	Readable       bool
	SchemaVersion  int
	Table          string
	TableExists    bool
	MissingColumns []string
	TotalRows      int
	IntegrityCheck bool
	Error          string
}

// CheckHealth inspects the database file, schema version, the layout of
// table, and SQLite's integrity check.
func (s *Store) CheckHealth(ctx context.Context, table string) (Health, error) {
	health := Health{Path: s.path, Table: table}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("database path %q is a directory", s.path)
	}
	health.Exists = true

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	fail := func(err error, format string) (Health, error) {
		health.Error = err.Error()
		return health, fmt.Errorf(format, err)
	}

	if err := s.db.PingContext(connCtx); err != nil {
		return fail(err, "ping database: %w")
	}
	health.Readable = true

	if health.SchemaVersion, err = s.SchemaVersionInDB(connCtx); err != nil {
		return fail(err, "%w")
	}

	quoted, err := QuoteTable(table)
	if err != nil {
		return fail(err, "%w")
	}
	if health.TableExists, err = s.TableExists(connCtx, table); err != nil {
		return fail(err, "%w")
	}

	if health.TableExists {
		rows, err := s.db.QueryContext(connCtx, "SELECT name FROM pragma_table_info(?)", table)
		if err != nil {
			return fail(err, "table info: %w")
		}
		present := map[string]struct{}{}
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				rows.Close()
				return fail(err, "scan table info: %w")
			}
			present[name] = struct{}{}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fail(err, "iterate table info: %w")
		}
		for _, col := range Columns {
			if _, ok := present[col]; !ok {
				health.MissingColumns = append(health.MissingColumns, col)
			}
		}
		sort.Strings(health.MissingColumns)

		if err := s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM "+quoted).Scan(&health.TotalRows); err != nil {
			return fail(err, "count rows: %w")
		}
	}

	var integrity string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		return fail(err, "integrity check: %w")
	}
	health.IntegrityCheck = strings.EqualFold(integrity, "ok")
	return health, nil
}
