// Package logging assembles the structured slog loggers used by the dbqueue
// CLI, the maintenance daemon, and embedded queues.
//
// It owns the console and JSON handlers, level parsing, output routing, and a
// tee handler so the daemon can write readable lines to the terminal while
// keeping a JSON journal on disk. Components tag their output with
// NewComponentLogger; a no-op logger is provided for tests and for library
// callers that do not want queue chatter.
package logging
