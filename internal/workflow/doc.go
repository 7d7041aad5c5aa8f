// Package workflow serializes transcoding jobs.
//
// Admit validates a job, appends it to the pending FIFO, reports its queue
// position and starts a drain when none is running. Exactly one drain runs at a
// time: it pops the head job, re-reports the positions of everything still
// waiting, runs the pipeline, and reports the outcome before taking the next
// job. The drain flag is cleared under the same mutex Admit appends under, so a
// job admitted while the last job finishes is always picked up.
//
// Pipeline failures never escape the drain; they are logged, counted and
// reported as a failed status. Notification and history errors are logged and
// otherwise ignored.
package workflow
