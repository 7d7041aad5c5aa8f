// Package notifications reports job status transitions to the backend that
// owns the video records.
//
// NewService returns an HTTP implementation when a backend URL is configured
// and a noop implementation otherwise, so callers never branch on
// configuration. Delivery is best effort: the workflow logs and discards
// errors.
package notifications
