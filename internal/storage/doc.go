// Package storage abstracts the object store that holds uploaded sources and
// published HLS output.
//
// The production backend is Cloudflare R2 through the S3 API. A filesystem
// backend mirrors the same key layout under a local directory for development
// and tests.
package storage
