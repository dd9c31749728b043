// Package wake provides the cross-process wake channel that lets consumers
// blocked on an empty queue react to new rows without hammering the store.
//
// Signal never blocks and never fails; AwaitUntil reports whether a signal
// arrived before the deadline. Three backends are available: Local wakes
// waiters in the current process only, Store bumps a sequence row in the
// shared database that other processes poll, and Redis uses pub/sub. Lost or
// spurious wakeups are tolerated because callers re-check the queue after
// every wait.
package wake
