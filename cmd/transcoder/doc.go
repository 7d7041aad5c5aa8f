// Command transcoder runs the transcoding daemon in the foreground and talks to
// a running daemon over its admission API.
//
// Commands that only read configuration (profiles, config validate, history)
// work without a daemon. status falls back to local dependency and preflight
// checks when no daemon answers.
package main
