package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"

	"dbqueue/internal/config"
	"dbqueue/internal/store"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.db")
	if result := CheckStore(context.Background(), path, "queue", time.Second); result.Passed {
		t.Fatal("expected failure for missing database")
	}

	db, err := store.OpenPath(path, time.Second)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	if result := CheckStore(context.Background(), path, "queue", time.Second); result.Passed || !strings.Contains(result.Detail, "missing") {
		t.Fatalf("expected missing table failure, got %+v", result)
	}
	if err := db.EnsureTable(context.Background(), "queue"); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	db.Close()

	if result := CheckStore(context.Background(), path, "queue", time.Second); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckRedis_OK(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectPing().SetVal("PONG")

	result := CheckRedis(context.Background(), client, "localhost:6379")
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCheckRedis_Unreachable(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectPing().SetErr(errors.New("connection refused"))

	result := CheckRedis(context.Background(), client, "localhost:6379")
	if result.Passed {
		t.Fatal("expected failure")
	}
	if !strings.Contains(result.Detail, "connection refused") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckRedis_MissingAddr(t *testing.T) {
	client, _ := redismock.NewClientMock()
	if result := CheckRedis(context.Background(), client, ""); result.Passed {
		t.Fatal("expected failure for missing address")
	}
}

func TestRunAllSkipsUnconfiguredRedis(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = base
	cfg.Paths.LogDir = base
	cfg.Store.Path = filepath.Join(base, "queue.db")
	cfg.Wake.Kind = config.WakeStore

	results := RunAll(context.Background(), &cfg)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Store" {
		t.Fatalf("expected only the store check to fail, got %+v", failed)
	}
}
