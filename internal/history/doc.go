// Package history keeps an SQLite audit log of job status transitions.
//
// Every notification the workflow emits is also recorded here so operators can
// inspect what happened to a job after the fact. The log is append only and is
// never read back to restore pending work: a restarted daemon starts with an
// empty queue.
package history
