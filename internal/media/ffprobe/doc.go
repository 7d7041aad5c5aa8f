// Package ffprobe runs ffprobe and decodes the container and stream metadata
// the transcoder needs: source duration and the primary video stream.
package ffprobe
