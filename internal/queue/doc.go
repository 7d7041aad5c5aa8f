// Package queue models transcoding jobs and the in-memory FIFO of jobs waiting
// for the worker.
//
// Pending is deliberately not safe for concurrent use: the workflow manager owns
// the single instance and guards it with its own mutex, so admission and the
// drain loop agree on one exclusion discipline. Jobs live here only until they
// are dequeued; afterwards their state exists solely in status notifications
// (and the optional history audit log).
package queue
