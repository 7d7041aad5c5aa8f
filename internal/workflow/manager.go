package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"transcoder/internal/logging"
	"transcoder/internal/notifications"
	"transcoder/internal/pipeline"
	"transcoder/internal/queue"
)

// ErrStopped rejects admissions after Stop.
var ErrStopped = errors.New("workflow stopped")

const defaultNotifyTimeout = 15 * time.Second

// Runner executes one job. *pipeline.Coordinator satisfies it.
type Runner interface {
	Run(ctx context.Context, job queue.Job) (pipeline.Result, error)
}

// Recorder keeps an audit trail of status updates. *history.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, update notifications.Update) error
}

// Manager owns the pending queue and the single drain worker.
type Manager struct {
	runner        Runner
	notifier      notifications.Service
	recorder      Recorder
	logger        *slog.Logger
	notifyTimeout time.Duration
	baseCtx       context.Context

	mu        sync.Mutex
	pending   *queue.Pending
	draining  bool
	stopped   bool
	active    *queue.Job
	processed int
	failed    int
	lastErr   error
	lastJob   *Outcome
	wg        sync.WaitGroup

	// emitMu is taken while mu is still held so updates leave in the order
	// the queue changed.
	emitMu sync.Mutex
}

// Outcome summarizes the most recently finished job.
type Outcome struct {
	Job         queue.Job
	Status      queue.Status
	ManifestKey string
	Stage       pipeline.Stage
	Error       string
	Duration    time.Duration
	FinishedAt  time.Time
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithRecorder records every status update in addition to notifying it.
func WithRecorder(recorder Recorder) ManagerOption {
	return func(m *Manager) {
		m.recorder = recorder
	}
}

// WithNotifyTimeout bounds each notification and history write.
func WithNotifyTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		if timeout > 0 {
			m.notifyTimeout = timeout
		}
	}
}

// WithBaseContext sets the context drains run under. Values are kept but
// cancellation is not: an active job always runs to completion, and Stop is
// the only way to end a drain.
func WithBaseContext(ctx context.Context) ManagerOption {
	return func(m *Manager) {
		if ctx != nil {
			m.baseCtx = context.WithoutCancel(ctx)
		}
	}
}

// NewManager constructs a workflow manager. A nil notifier disables status
// reporting.
func NewManager(runner Runner, notifier notifications.Service, logger *slog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		runner:        runner,
		notifier:      notifier,
		logger:        logging.NewComponentLogger(logger, "workflow"),
		notifyTimeout: defaultNotifyTimeout,
		baseCtx:       context.Background(),
		pending:       queue.NewPending(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}
