package api

import (
	"time"

	"transcoder/internal/deps"
	"transcoder/internal/history"
	"transcoder/internal/profiles"
	"transcoder/internal/queue"
	"transcoder/internal/workflow"
)

// FromJob converts a queue job to its API representation.
func FromJob(job queue.Job) JobSummary {
	return JobSummary{
		VideoID:     job.ID,
		Filename:    job.SourceFilename,
		OriginalKey: job.SourceKey,
	}
}

// ToJob converts an admission request into a queue job. Validation happens in
// queue.Job.Validate.
func (r TranscodeRequest) ToJob() queue.Job {
	return queue.Job{
		ID:             r.VideoID,
		SourceFilename: r.Filename,
		SourceKey:      r.OriginalKey,
	}
}

// FromStatusSummary converts a workflow status summary to API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	pending := make([]JobSummary, 0, len(summary.Pending))
	for _, job := range summary.Pending {
		pending = append(pending, FromJob(job))
	}

	wf := WorkflowStatus{
		Draining:  summary.Draining,
		Stopped:   summary.Stopped,
		Pending:   pending,
		Processed: summary.Processed,
		Failed:    summary.Failed,
		LastError: summary.LastError,
	}
	if summary.Active != nil {
		active := FromJob(*summary.Active)
		wf.Active = &active
	}
	if last := summary.LastJob; last != nil {
		outcome := JobOutcome{
			Job:         FromJob(last.Job),
			Status:      string(last.Status),
			ManifestKey: last.ManifestKey,
			Stage:       string(last.Stage),
			Error:       last.Error,
			DurationMS:  last.Duration.Milliseconds(),
			FinishedAt:  formatTime(last.FinishedAt),
		}
		wf.LastJob = &outcome
	}
	return wf
}

// FromDependencies converts dependency checks to API payload.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, DependencyStatus{
			Name:        status.Name,
			Command:     status.Command,
			Description: status.Description,
			Optional:    status.Optional,
			Available:   status.Available,
			Detail:      status.Detail,
		})
	}
	return out
}

// FromProfiles converts the rendition ladder to API payload.
func FromProfiles(catalog profiles.Catalog) []ProfileSummary {
	list := catalog.Profiles()
	out := make([]ProfileSummary, 0, len(list))
	for _, p := range list {
		out = append(out, ProfileSummary{
			Label:        p.Label,
			Resolution:   p.Resolution(),
			VideoBitrate: p.VideoRate(),
			AudioBitrate: p.AudioRate(),
			Bandwidth:    p.Bandwidth(),
		})
	}
	return out
}

// FromHistory converts recorded transitions to API payload.
func FromHistory(entries []history.Entry) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(entries))
	for _, entry := range entries {
		dto := HistoryEntry{
			ID:            entry.ID,
			VideoID:       entry.JobID,
			Status:        string(entry.Status),
			QueuePosition: entry.QueuePosition,
			RecordedAt:    formatTime(entry.RecordedAt),
		}
		if entry.ManifestKey != nil {
			dto.ManifestKey = *entry.ManifestKey
		}
		out = append(out, dto)
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
