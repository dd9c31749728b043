package preflight

import (
	"context"

	"dbqueue/internal/config"
	"dbqueue/internal/wake"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckStore(ctx, cfg.Store.Path, cfg.Store.Table, cfg.BusyTimeout()),
	}

	if cfg.Wake.Kind == config.WakeRedis {
		client := wake.NewRedisClient(cfg)
		results = append(results, CheckRedis(ctx, client, cfg.Wake.RedisAddr))
		_ = client.Close()
	}

	return results
}
