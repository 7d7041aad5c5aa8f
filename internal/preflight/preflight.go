package preflight

import (
	"context"

	"transcoder/internal/config"
	"transcoder/internal/deps"
	"transcoder/internal/storage"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config. store
// may be nil when the backend has not been opened.
func RunAll(ctx context.Context, cfg *config.Config, store storage.Store) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckFreeSpace("Work directory space", cfg.Paths.WorkDir, MinFreeBytes),
	}
	if cfg.Storage.Backend == config.StorageBackendLocal {
		results = append(results, CheckDirectoryAccess("Local storage", cfg.Storage.LocalRoot))
	}
	if store != nil {
		results = append(results, CheckStorage(ctx, store))
	}
	if cfg.Backend.URL != "" {
		results = append(results, CheckBackend(ctx, cfg.Backend.URL))
	}
	return results
}

// CheckSystemDeps evaluates the binaries configured in cfg. Both the daemon and
// the CLI status command use this.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.Requirements(cfg))
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
