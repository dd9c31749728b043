// Package identity derives the claimant string recorded in inserted_by and
// acquired_by.
package identity

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

// New returns "<host>:<pid>:<random>", unique per call so that several
// queues in one process are distinguishable.
func New() string {
	host, err := os.Hostname()
	if err != nil || strings.TrimSpace(host) == "" {
		host = "unknown"
	}
	return fmt.Sprintf("%s:%d:%s", host, os.Getpid(), uuid.NewString()[:8])
}

// Resolve returns configured when it is non-blank, otherwise New().
func Resolve(configured string) string {
	if trimmed := strings.TrimSpace(configured); trimmed != "" {
		return trimmed
	}
	return New()
}
