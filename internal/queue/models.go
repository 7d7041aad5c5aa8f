package queue

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state reported for a job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	return []Status{StatusQueued, StatusProcessing, StatusCompleted, StatusFailed}
}

// IsTerminal reports whether no further transitions follow s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ParseStatus normalizes a status string.
func ParseStatus(value string) (Status, bool) {
	candidate := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, s := range AllStatuses() {
		if s == candidate {
			return s, true
		}
	}
	return "", false
}

// Job is one transcoding request. ID and SourceKey are caller supplied.
type Job struct {
	ID             string
	SourceFilename string
	SourceKey      string
}

// Validate trims the job fields and rejects jobs without an ID or source key.
// The ID names the job's storage prefix, so it must be a single path segment.
func (j *Job) Validate() error {
	j.ID = strings.TrimSpace(j.ID)
	j.SourceKey = strings.TrimSpace(j.SourceKey)
	j.SourceFilename = strings.TrimSpace(j.SourceFilename)
	switch {
	case j.ID == "":
		return fmt.Errorf("%w: id is required", ErrInvalidJob)
	case !isPathSegment(j.ID):
		return fmt.Errorf("%w: id %q must be a single path segment", ErrInvalidJob, j.ID)
	case j.SourceKey == "":
		return fmt.Errorf("%w: source key is required", ErrInvalidJob)
	}
	return nil
}

func isPathSegment(id string) bool {
	if id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, "/\\\x00")
}

// DisplayName is the filename used for the downloaded source, defaulting to
// the last segment of the source key.
func (j Job) DisplayName() string {
	if name := strings.TrimSpace(j.SourceFilename); name != "" {
		return name
	}
	key := strings.TrimRight(j.SourceKey, "/")
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		key = key[idx+1:]
	}
	if key == "" {
		return "source"
	}
	return key
}
