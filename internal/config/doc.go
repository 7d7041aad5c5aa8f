// Package config loads, normalizes, and validates transcoder configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads optional .env files, and honours the
// environment variables the service has always accepted (API_SECRET,
// BACKEND_URL, R2_*, PORT). The Config type centralizes every knob the daemon
// and CLI need.
package config
