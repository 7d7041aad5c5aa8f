// Package api defines wire-format types and converters for the HTTP admission
// API. It translates workflow, history, and dependency models into
// transport-friendly DTOs so the CLI and the upload backend never couple to
// internal types.
//
// # Key Types
//
// TranscodeRequest: admission body posted by the upload backend. Field names
// match the backend's existing contract (videoId, originalKey).
//
// TranscodeResponse: admission acknowledgement carrying the queue position.
//
// WorkflowStatus: drain state, pending jobs, the active job, and the last
// outcome.
//
// DaemonStatus: aggregated runtime information including dependencies and
// profiles.
//
// # Converters
//
// FromStatusSummary: workflow.StatusSummary -> WorkflowStatus.
//
// FromDependencies: deps.Status -> DependencyStatus.
//
// FromHistory: history.Entry -> HistoryEntry.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. The admission response keeps the backend's
// historical shape so existing callers continue to work. Timestamps use RFC3339
// with milliseconds.
package api
