package queue

import "errors"

var (
	// ErrContended is returned when a claim lost the race for the store more
	// times than MaxConflictRetries allows.
	ErrContended = errors.New("queue: claim contended")
	// ErrInvalidConfig reports unusable queue options or arguments.
	ErrInvalidConfig = errors.New("queue: invalid configuration")
	// ErrDelayUnsupported is returned when a delay is requested on a queue
	// that was not created delay-capable.
	ErrDelayUnsupported = errors.New("queue: delay requires a delay-capable queue")
	// ErrClosed is returned by operations on a closed queue.
	ErrClosed = errors.New("queue: closed")
)
