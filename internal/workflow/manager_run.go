package workflow

import (
	"context"
	"time"

	"transcoder/internal/logging"
	"transcoder/internal/notifications"
	"transcoder/internal/pipeline"
	"transcoder/internal/queue"
	"transcoder/internal/services"
)

// Admit queues job and returns its 1-based position. Invalid and duplicate
// jobs are rejected without touching the queue or notifying anyone.
func (m *Manager) Admit(ctx context.Context, job queue.Job) (int, error) {
	if err := job.Validate(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return 0, ErrStopped
	}
	position, err := m.pending.Push(job)
	if err != nil {
		m.mu.Unlock()
		return 0, err
	}
	startDrain := !m.draining
	if startDrain {
		m.draining = true
		m.wg.Add(1)
	}
	m.emitMu.Lock()
	m.mu.Unlock()

	ctx = services.WithJobID(ctx, job.ID)
	logging.WithContext(ctx, m.logger).Info("job queued",
		logging.Int("position", position),
		logging.String("source_key", job.SourceKey),
		logging.Bool("drain_started", startDrain),
		logging.String(logging.FieldEventType, "job_queued"),
	)
	m.emit(ctx, notifications.Queued(job.ID, position))
	m.emitMu.Unlock()

	if startDrain {
		go m.drain()
	}
	return position, nil
}

func (m *Manager) drain() {
	defer m.wg.Done()
	for {
		job, remaining, dropped, ok := m.next()
		if !ok {
			for _, lost := range dropped {
				m.emit(services.WithJobID(m.baseCtx, lost.ID), notifications.Failed(lost.ID))
			}
			m.emitMu.Unlock()
			return
		}
		ctx := services.WithJobID(m.baseCtx, job.ID)

		for i, waiting := range remaining {
			m.emit(services.WithJobID(m.baseCtx, waiting.ID), notifications.Queued(waiting.ID, i+1))
		}
		m.emit(ctx, notifications.Processing(job.ID))
		m.emitMu.Unlock()

		m.process(ctx, job)
	}
}

// next pops the head job and snapshots the jobs behind it. When nothing is
// left, or the manager is stopping, it clears the drain flag under the same
// lock Admit appends under and hands back the jobs it discarded. emitMu is
// held on return; the caller releases it after emitting.
func (m *Manager) next() (queue.Job, []queue.Job, []queue.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emitMu.Lock()
	if m.stopped {
		var dropped []queue.Job
		for {
			job, ok := m.pending.Pop()
			if !ok {
				break
			}
			dropped = append(dropped, job)
		}
		if len(dropped) > 0 {
			m.failed += len(dropped)
			logging.WarnWithContext(m.logger, "workflow stopped with jobs still queued", "queue_dropped",
				logging.Int("dropped", len(dropped)),
				logging.String(logging.FieldErrorHint, "resubmit the jobs after restart"),
				logging.String(logging.FieldImpact, "queued jobs were reported failed without transcoding"),
			)
		}
		m.draining = false
		m.active = nil
		return queue.Job{}, nil, dropped, false
	}
	job, ok := m.pending.Pop()
	if !ok {
		m.draining = false
		m.active = nil
		return queue.Job{}, nil, nil, false
	}
	active := job
	m.active = &active
	return job, m.pending.Snapshot(), nil, true
}

func (m *Manager) process(ctx context.Context, job queue.Job) {
	logger := logging.WithContext(ctx, m.logger)
	started := time.Now()
	logger.Info("job processing started", logging.String(logging.FieldEventType, "job_started"))

	result, err := m.runSafely(ctx, job)
	outcome := Outcome{Job: job, Duration: time.Since(started), FinishedAt: time.Now()}

	if err != nil {
		outcome.Status = queue.StatusFailed
		outcome.Stage = pipeline.StageOf(err)
		outcome.Error = err.Error()
		m.finish(outcome, err)
		logging.ErrorWithContext(logger, "job failed", "job_failed",
			logging.String(logging.FieldStage, string(outcome.Stage)),
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.Duration("elapsed", outcome.Duration),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the stage error and resubmit the job"),
		)
		m.emitOrdered(ctx, notifications.Failed(job.ID))
		return
	}

	outcome.Status = queue.StatusCompleted
	outcome.ManifestKey = result.MasterKey
	m.finish(outcome, nil)
	logger.Info("job completed",
		logging.String("master_key", result.MasterKey),
		logging.Duration("elapsed", outcome.Duration),
		logging.String(logging.FieldEventType, "job_completed"),
	)
	m.emitOrdered(ctx, notifications.Completed(job.ID, result.MasterKey))
}

// runSafely converts a runner panic into a job failure so one bad job cannot
// take the drain down with it.
func (m *Manager) runSafely(ctx context.Context, job queue.Job) (result pipeline.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &pipeline.Error{Stage: pipeline.StageTranscode, Message: "runner panic", Err: panicError{value: r}}
		}
	}()
	return m.runner.Run(ctx, job)
}

func (m *Manager) finish(outcome Outcome, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.failed++
		m.lastErr = err
	} else {
		m.processed++
	}
	m.lastJob = &outcome
}

func (m *Manager) emitOrdered(ctx context.Context, update notifications.Update) {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()
	m.emit(ctx, update)
}

// emit delivers update to the notifier and the recorder. Failures are logged
// and swallowed.
func (m *Manager) emit(ctx context.Context, update notifications.Update) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.notifyTimeout)
	defer cancel()
	logger := logging.WithContext(ctx, m.logger)

	if m.notifier != nil {
		if err := m.notifier.NotifyStatus(ctx, update); err != nil {
			logging.WarnWithContext(logger, "status notification failed", "status_notify_failed",
				logging.String("status", string(update.Status)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check backend.url and backend reachability"),
				logging.String(logging.FieldImpact, "backend shows a stale status for this job"),
			)
		}
	}
	if m.recorder != nil {
		if err := m.recorder.Record(ctx, update); err != nil {
			logging.WarnWithContext(logger, "history record failed", "history_record_failed",
				logging.String("status", string(update.Status)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check history.path permissions"),
				logging.String(logging.FieldImpact, "status transition missing from history"),
			)
		}
	}
}

// Wait blocks until the current drain, if any, has finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Stop rejects further admissions, lets the active job finish and waits for
// the drain to exit. Jobs still pending are discarded and reported failed.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
	m.wg.Wait()
}
