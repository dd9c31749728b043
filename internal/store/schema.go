package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// SchemaVersion is the layout version recorded in schema_version.
const SchemaVersion = 1

// ErrSchemaMismatch indicates the database was created by an incompatible version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

func (s *Store) initSchema(ctx context.Context) error {
	return RetryOnConflict(ctx, func() error {
		return s.InTx(ctx, func(conn Querier) error {
			if _, err := conn.ExecContext(ctx, schemaSQL); err != nil {
				return fmt.Errorf("create schema: %w", err)
			}

			var version int
			err := conn.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				if _, err := conn.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", SchemaVersion); err != nil {
					return fmt.Errorf("record schema version: %w", err)
				}
				return nil
			case err != nil:
				return fmt.Errorf("read schema version: %w", err)
			}

			if version != SchemaVersion {
				return fmt.Errorf("%w: database has version %d, expected %d (delete the database file to recreate it)",
					ErrSchemaMismatch, version, SchemaVersion)
			}
			return nil
		})
	})
}

// SchemaVersionInDB reads the version recorded in the database.
func (s *Store) SchemaVersionInDB(ctx context.Context) (int, error) {
	var version int
	if err := s.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}
