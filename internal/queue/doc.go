// Package queue implements a durable work queue on top of the shared SQLite
// store.
//
// Any number of producers and consumers, in any number of processes, may
// operate on the same logical queue. The only coordination substrate is the
// queue table: a consumer claims a row by stamping acquired_at and
// acquired_by inside a BEGIN IMMEDIATE transaction, and a claimed row is never
// handed out again. Claim conflicts are retried with capped exponential
// backoff; exhausting the cap yields ErrContended.
//
// Candidates are ordered by priority (higher first) and then by id, or by id
// alone for FIFO queues. Delay-capable queues additionally hide rows whose
// eligible_at lies in the future and run a single timer that signals the wake
// channel when the next delayed row becomes eligible.
//
// Blocking operations (PollTimeout, Take) never wait longer than
// MaxSingleWait between polls, so a lost wakeup only costs latency.
package queue
