package daemonctl_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"dbqueue/internal/daemon"
	"dbqueue/internal/daemonctl"
	"dbqueue/internal/logging"
	"dbqueue/internal/testsupport"
)

func TestNewClientEmptyBind(t *testing.T) {
	client, err := daemonctl.NewClient("  ", "")
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if client != nil {
		t.Fatal("expected nil client for empty bind")
	}
	if _, err := client.Status(context.Background()); !daemonctl.IsAPIUnavailable(err) {
		t.Fatalf("expected unavailable error from nil client, got %v", err)
	}
}

func TestClientAgainstRunningDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Maintenance.APIBind = "127.0.0.1:0"
	cfg.Maintenance.APIToken = "s3cret"
	db := testsupport.MustOpenStore(t, cfg)
	d, err := daemon.New(cfg, db, logging.NewNop(), "")
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	ctx := context.Background()

	client, err := daemonctl.NewClient(d.Status().APIAddr, cfg.Maintenance.APIToken)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	status, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running || status.Table != cfg.Store.Table {
		t.Fatalf("unexpected status %+v", status)
	}
	if _, err := client.Sweep(ctx); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if stats, err := client.Stats(ctx); err != nil || len(stats) != 0 {
		t.Fatalf("Stats = %+v, %v", stats, err)
	}

	state, err := daemonctl.Inspect(cfg)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if !state.Running {
		t.Fatalf("expected running daemon, got %+v", state)
	}

	unauthorized, _ := daemonctl.NewClient(d.Status().APIAddr, "wrong")
	if _, err := unauthorized.Status(ctx); err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestSweepFailureIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"rows_removed":0,"error":"no such table: jobs"}`))
	}))
	defer srv.Close()

	client, err := daemonctl.NewClient(srv.URL, "")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	result, err := client.Sweep(context.Background())
	if err == nil || result.Error != "no such table: jobs" {
		t.Fatalf("expected sweep error, got %+v, %v", result, err)
	}
}

func TestIsAPIUnavailableOnRefusedConnection(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.Listener.Addr().String()
	srv.Close()

	client, _ := daemonctl.NewClient(addr, "")
	_, err := client.Status(context.Background())
	if !daemonctl.IsAPIUnavailable(err) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

func TestInspectWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	state, err := daemonctl.Inspect(cfg)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if state.Running || state.PID != 0 {
		t.Fatalf("unexpected state %+v", state)
	}
	if filepath.Base(state.LockPath) != daemon.LockFileName {
		t.Fatalf("unexpected lock path %s", state.LockPath)
	}
}

func TestTailLogReturnsLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dbqueued.log")
	if err := os.WriteFile(path, []byte("one\ntwo\nthree\nfour\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	var got []string
	if err := daemonctl.TailLog(context.Background(), path, 2, false, func(line string) { got = append(got, line) }); err != nil {
		t.Fatalf("TailLog: %v", err)
	}
	if strings.Join(got, ",") != "three,four" {
		t.Fatalf("unexpected lines %v", got)
	}

	got = nil
	if err := daemonctl.TailLog(context.Background(), filepath.Join(t.TempDir(), "missing.log"), 5, false, func(line string) { got = append(got, line) }); err != nil || len(got) != 0 {
		t.Fatalf("missing log: %v, %v", got, err)
	}
}

func TestTailLogFollowsAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dbqueued.log")
	if err := os.WriteFile(path, []byte("start\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	var (
		mu  sync.Mutex
		got []string
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- daemonctl.TailLog(ctx, path, 10, true, func(line string) {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
		})
	}()

	time.Sleep(50 * time.Millisecond)
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	_, _ = file.WriteString("next\npartial")
	_ = file.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n >= 2 || time.Now().After(deadline) {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("TailLog: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if strings.Join(got, ",") != "start,next" {
		t.Fatalf("unexpected lines %v", got)
	}
}
