package queue

import "errors"

var (
	// ErrInvalidJob rejects admissions without an id or source key.
	ErrInvalidJob = errors.New("invalid job")
	// ErrDuplicateJob rejects an id that is already waiting in the queue.
	ErrDuplicateJob = errors.New("job already queued")
)
