// Package daemon runs the long-lived maintenance process for a dbqueue store.
//
// It takes a flock-based single-instance lock, schedules retention sweeps
// with cron, prunes old daemon logs, posts sweep failures to ntfy, and
// optionally serves a small JSON status API. Queue semantics live in the
// queue package; the daemon only calls its maintenance operations on a timer.
package daemon
