// Package staging manages per-job working areas under the configured work
// directory and sweeps areas left behind by crashed runs.
package staging
