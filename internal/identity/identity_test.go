package identity_test

import (
	"os"
	"strconv"
	"strings"
	"testing"

	"dbqueue/internal/identity"
)

func TestNewIncludesPidAndIsUnique(t *testing.T) {
	a := identity.New()
	b := identity.New()
	if a == b {
		t.Fatalf("expected unique identities, got %q twice", a)
	}
	parts := strings.Split(a, ":")
	if len(parts) != 3 {
		t.Fatalf("unexpected identity shape %q", a)
	}
	if parts[1] != strconv.Itoa(os.Getpid()) {
		t.Fatalf("expected pid %d in %q", os.Getpid(), a)
	}
}

func TestResolvePrefersConfigured(t *testing.T) {
	if got := identity.Resolve("  worker-3 "); got != "worker-3" {
		t.Fatalf("unexpected identity %q", got)
	}
	if got := identity.Resolve(" "); got == "" {
		t.Fatal("expected generated identity for blank input")
	}
}
