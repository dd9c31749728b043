// Package store owns the SQLite database that every dbqueue producer and
// consumer shares.
//
// It opens the database with WAL journaling and a busy timeout, records the
// schema version, creates queue tables on demand, and classifies lock errors
// as conflicts so the claim protocol can retry them. Callers work with the
// raw database/sql surface; the queue package builds its statements on top.
package store
