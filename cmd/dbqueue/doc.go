// Package main hosts the dbqueue CLI entrypoint and command graph.
//
// Queue commands open the configured store directly, perform one operation,
// and exit; no daemon is required. The daemon subcommands inspect dbqueued
// through its lock file, log, and optional HTTP API. The CLI is meant for
// operators inspecting or nudging a queue shared by other processes, and
// for shell scripts that enqueue or consume string payloads.
package main
