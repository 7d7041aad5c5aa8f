package workflow

import (
	"fmt"

	"transcoder/internal/queue"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Draining  bool
	Stopped   bool
	Pending   []queue.Job
	Active    *queue.Job
	Processed int
	Failed    int
	LastError string
	LastJob   *Outcome
}

// Status returns the latest workflow information.
func (m *Manager) Status() StatusSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	summary := StatusSummary{
		Draining:  m.draining,
		Stopped:   m.stopped,
		Pending:   m.pending.Snapshot(),
		Processed: m.processed,
		Failed:    m.failed,
	}
	if m.active != nil {
		active := *m.active
		summary.Active = &active
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	if m.lastJob != nil {
		last := *m.lastJob
		summary.LastJob = &last
	}
	return summary
}

type panicError struct {
	value any
}

func (p panicError) Error() string {
	return fmt.Sprintf("panic: %v", p.value)
}
