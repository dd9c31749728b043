// Package preflight provides readiness checks for the store, the wake
// channel backend, and the filesystem paths that dbqueue depends on.
//
// dbqueued runs RunAll at startup and logs every failure; the CLI "health"
// command prints the same results as a table. Checks for backends that are
// not configured are skipped.
package preflight
