package daemonctl

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"

	"dbqueue/internal/config"
	"dbqueue/internal/daemon"
)

// ProcessState describes the local dbqueued instance, if any.
type ProcessState struct {
	Running  bool
	PID      int
	LockPath string
	PIDPath  string
	LogPath  string
}

// Inspect probes the daemon lock without holding it. A lock that can be
// acquired means no daemon is running.
func Inspect(cfg *config.Config) (ProcessState, error) {
	if cfg == nil {
		return ProcessState{}, errors.New("config is required")
	}
	state := ProcessState{
		LockPath: filepath.Join(cfg.Paths.DataDir, daemon.LockFileName),
		PIDPath:  filepath.Join(cfg.Paths.DataDir, daemon.PIDFileName),
		LogPath:  filepath.Join(cfg.Paths.LogDir, daemon.CurrentLogName),
	}
	if _, err := os.Stat(state.LockPath); errors.Is(err, os.ErrNotExist) {
		return state, nil
	}

	lock := flock.New(state.LockPath)
	acquired, err := lock.TryLock()
	if err != nil {
		return state, fmt.Errorf("probe daemon lock: %w", err)
	}
	if acquired {
		_ = lock.Unlock()
		return state, nil
	}

	state.Running = true
	pid, err := readPID(state.PIDPath)
	if err != nil {
		return state, err
	}
	state.PID = pid
	return state, nil
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read daemon pid file %q: %w", path, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("daemon pid file %q is malformed", path)
	}
	return pid, nil
}
