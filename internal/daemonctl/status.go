package daemonctl

import (
	"context"
	"time"

	"transcoder/internal/api"
	"transcoder/internal/config"
	"transcoder/internal/preflight"
)

// Snapshot combines the daemon's view with local checks.
type Snapshot struct {
	Daemon       *api.DaemonStatus
	Reachable    bool
	DaemonError  string
	Dependencies []DependencyLine
	Checks       []preflight.Result
}

// DependencyLine is a dependency with a display severity.
type DependencyLine struct {
	api.DependencyStatus
	Severity string
}

// BuildStatusSnapshot queries the daemon when it is reachable and otherwise
// resolves dependencies locally. Local preflight checks always run.
func BuildStatusSnapshot(ctx context.Context, cfg *config.Config, client *Client) Snapshot {
	snapshot := Snapshot{}
	if client != nil {
		queryCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		status, err := client.Status(queryCtx)
		cancel()
		switch {
		case err == nil:
			snapshot.Daemon = status
			snapshot.Reachable = true
		case IsUnavailable(err):
		default:
			snapshot.DaemonError = err.Error()
		}
	}

	deps := []api.DependencyStatus(nil)
	if snapshot.Daemon != nil {
		deps = snapshot.Daemon.Dependencies
	}
	if len(deps) == 0 {
		deps = ResolveDependencies(cfg)
	}
	snapshot.Dependencies = make([]DependencyLine, 0, len(deps))
	for _, dep := range deps {
		snapshot.Dependencies = append(snapshot.Dependencies, DependencyLine{
			DependencyStatus: dep,
			Severity:         severity(dep),
		})
	}

	snapshot.Checks = preflight.RunAll(ctx, cfg, nil)
	return snapshot
}

// ResolveDependencies returns current dependency availability for status output.
func ResolveDependencies(cfg *config.Config) []api.DependencyStatus {
	if cfg == nil {
		return nil
	}
	return api.FromDependencies(preflight.CheckSystemDeps(cfg))
}

func severity(dep api.DependencyStatus) string {
	switch {
	case dep.Available:
		return "ok"
	case dep.Optional:
		return "warn"
	default:
		return "error"
	}
}
