// Package daemonctl lets the dbqueue CLI inspect a running dbqueued.
//
// The daemon is located through its data directory: the flock lock file tells
// whether an instance holds the maintenance role, the pid file names it, and
// the optional HTTP API (maintenance.api_bind) serves status, stats, and
// on-demand sweeps. Log tailing reads the daemon's current log pointer.
package daemonctl
