package store

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrConflict marks a write that lost a race for the database lock.
var ErrConflict = errors.New("store: write conflict")

const (
	sqliteBusy   = 5
	sqliteLocked = 6

	conflictRetryAttempts       = 5
	conflictRetryInitialBackoff = 10 * time.Millisecond
	conflictRetryMaxBackoff     = 200 * time.Millisecond
)

// IsConflict reports whether err is a transient lock or serialization error
// that is safe to retry: SQLITE_BUSY, SQLITE_LOCKED (including extended
// codes), or an error wrapping ErrConflict.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConflict) {
		return true
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		switch coder.Code() & 0xff {
		case sqliteBusy, sqliteLocked:
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// RetryOnConflict runs op until it succeeds, fails with a non-conflict error,
// or a small number of attempts is exhausted. Backoff doubles between
// attempts.
func RetryOnConflict(ctx context.Context, op func() error) error {
	ctx = ensureContext(ctx)
	delay := conflictRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < conflictRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !IsConflict(lastErr) || attempt == conflictRetryAttempts-1 {
			break
		}
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
		if next := delay * 2; next <= conflictRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
