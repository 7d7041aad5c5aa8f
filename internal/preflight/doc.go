// Package preflight runs environment checks before the daemon accepts work and
// when operators ask for status: work directory access, free disk space, the
// storage backend and the status callback endpoint.
package preflight
