// Package logs reads the daemon log file for `transcoder logs`.
//
// Tail returns the last N lines or everything after a byte offset, optionally
// waiting for new output, and can narrow the result to one job. Callers supply
// context deadlines so follow-mode polling shuts down cleanly when the CLI
// exits.
package logs
