// Package daemon coordinates the long-running transcoder process.
//
// It wires configuration, the workflow manager, and the admission HTTP API into
// a single lifecycle with flock-based locking to prevent multiple instances.
// Start sweeps stale work areas left by a previous crash before the API begins
// accepting jobs; Stop drains the active job and releases the lock.
//
// Keep orchestration logic here: the pipeline steps live in their respective
// packages while the daemon focuses on startup, shutdown, and request
// admission.
package daemon
