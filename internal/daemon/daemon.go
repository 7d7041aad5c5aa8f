package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"transcoder/internal/config"
	"transcoder/internal/deps"
	"transcoder/internal/history"
	"transcoder/internal/logging"
	"transcoder/internal/profiles"
	"transcoder/internal/queue"
	"transcoder/internal/staging"
	"transcoder/internal/workflow"
)

// staleAreaAge is how old a leftover work area must be before Start removes it.
const staleAreaAge = 24 * time.Hour

// HistoryReader exposes the recorded status transitions. *history.Store satisfies it.
type HistoryReader interface {
	Path() string
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
	ForJob(ctx context.Context, jobID string) ([]history.Entry, error)
}

// Daemon coordinates the admission API and the workflow manager and enforces
// single-instance execution.
type Daemon struct {
	cfg          *config.Config
	logger       *slog.Logger
	workflow     *workflow.Manager
	catalog      profiles.Catalog
	dependencies []deps.Status
	history      HistoryReader
	apiSrv       *apiServer

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	startedAt time.Time
	ctx       context.Context
	cancel    context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	StartedAt    time.Time
	LockFilePath string
	WorkDir      string
	Storage      string
	HistoryPath  string
	Workflow     workflow.StatusSummary
	Dependencies []deps.Status
	Profiles     profiles.Catalog
}

// Option configures optional daemon collaborators.
type Option func(*Daemon)

// WithCatalog reports the rendition ladder in status responses.
func WithCatalog(catalog profiles.Catalog) Option {
	return func(d *Daemon) {
		d.catalog = catalog
	}
}

// WithDependencies reports the dependency snapshot taken at startup.
func WithDependencies(statuses []deps.Status) Option {
	return func(d *Daemon) {
		d.dependencies = append([]deps.Status(nil), statuses...)
	}
}

// WithHistory exposes recorded transitions through the API.
func WithHistory(reader HistoryReader) Option {
	return func(d *Daemon) {
		d.history = reader
	}
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, wf *workflow.Manager, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || wf == nil {
		return nil, errors.New("daemon requires config and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		workflow: wf,
		catalog:  profiles.Default(),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	d.apiSrv = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, sweeps stale work areas and starts the
// admission API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another transcoder daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.sweepStaleAreas(d.ctx)

	if err := d.apiSrv.start(d.ctx); err != nil {
		d.cancel()
		_ = d.lock.Unlock()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start api server: %w", err)
	}

	d.startedAt = time.Now()
	d.running.Store(true)
	d.logger.Info("transcoder daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api_bind", d.APIAddress()),
		logging.Int("profiles", d.catalog.Len()),
	)
	return nil
}

func (d *Daemon) sweepStaleAreas(ctx context.Context) {
	result := staging.CleanStale(ctx, d.cfg.Paths.WorkDir, staleAreaAge, d.logger)
	if len(result.Removed) > 0 {
		d.logger.Info("removed stale work areas", logging.Int("count", len(result.Removed)))
	}
	for _, failure := range result.Errors {
		logging.WarnWithContext(d.logger, "stale work area cleanup failed", "stale_cleanup_failed",
			logging.String("path", failure.Path),
			logging.Error(failure.Error),
			logging.String(logging.FieldImpact, "disk space is not reclaimed"),
			logging.String(logging.FieldErrorHint, "remove the directory manually"),
		)
	}

	remaining, err := staging.ListDirectories(d.cfg.Paths.WorkDir)
	if err != nil {
		d.logger.Debug("list work areas failed", logging.Error(err))
		return
	}
	for _, area := range remaining {
		d.logger.Info("work area retained",
			logging.String(logging.FieldJobID, area.JobID),
			logging.Int64("bytes", area.Size),
			logging.Duration("age", time.Since(area.ModTime)),
		)
	}
}

// Stop shuts down the API, waits for the active job and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.apiSrv.stop()
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "next start may report another instance"),
		)
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("transcoder daemon stopped")
}

// Submit admits a job to the workflow manager and returns its queue position.
func (d *Daemon) Submit(ctx context.Context, job queue.Job) (int, error) {
	return d.workflow.Admit(ctx, job)
}

// APIAddress returns the address the API listens on, or the configured bind
// before Start.
func (d *Daemon) APIAddress() string {
	return d.apiSrv.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		StartedAt:    d.startedAt,
		LockFilePath: d.lockPath,
		WorkDir:      d.cfg.Paths.WorkDir,
		Storage:      d.cfg.Storage.Backend,
		Workflow:     d.workflow.Status(),
		Dependencies: append([]deps.Status(nil), d.dependencies...),
		Profiles:     d.catalog,
	}
	if d.history != nil {
		status.HistoryPath = d.history.Path()
	}
	return status
}
