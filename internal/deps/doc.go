// Package deps checks that the external binaries the transcoder shells out to
// are installed.
package deps
