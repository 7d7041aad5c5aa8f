// Package pipeline runs one transcoding job end to end: download the source,
// encode every catalog profile, sample preview frames, write the master
// playlist and thumbnail timeline, publish everything to storage, and remove
// the working area.
//
// Failures are reported as *Error carrying the stage (download, transcode or
// upload) in which they happened. Uploads are not rolled back; objects are
// addressed by job id and only referenced once the job is reported completed.
package pipeline
