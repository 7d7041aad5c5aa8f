// Package daemonctl is the CLI side of the admission API: an HTTP client for a
// running transcoder daemon plus the status snapshot that falls back to local
// checks when no daemon answers.
package daemonctl
