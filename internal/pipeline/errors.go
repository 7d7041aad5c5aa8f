package pipeline

import (
	"errors"
	"fmt"
)

// Stage classifies where a job failed.
type Stage string

const (
	StageDownload  Stage = "download"
	StageTranscode Stage = "transcode"
	StageUpload    Stage = "upload"
)

// Error is a stage-classified pipeline failure.
type Error struct {
	Stage   Stage
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// StageOf returns the stage of a pipeline error, or "" for other errors.
func StageOf(err error) Stage {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Stage
	}
	return ""
}

func newError(stage Stage, message string, err error) *Error {
	return &Error{Stage: stage, Message: message, Err: err}
}
