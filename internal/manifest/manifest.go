// Package manifest renders the HLS master playlist and the WebVTT thumbnail
// timeline for a transcoded job. Everything here is pure string building.
package manifest

import (
	"fmt"
	"math"
	"path"
	"strings"

	"transcoder/internal/profiles"
)

const (
	// MasterName is the file name of the master playlist.
	MasterName = "master.m3u8"
	// RenditionPlaylist is the per-profile playlist name inside its label folder.
	RenditionPlaylist = "playlist.m3u8"
	// SegmentPattern is the ffmpeg segment filename template inside a label folder.
	SegmentPattern = "segment%03d.ts"
	// ThumbnailPattern is the ffmpeg image filename template for preview frames.
	ThumbnailPattern = "thumb%04d.jpg"
	// TimelineName is the file name of the thumbnail timeline.
	TimelineName = "thumbnails.vtt"

	masterHeader   = "#EXTM3U\n#EXT-X-VERSION:3\n\n"
	timelineHeader = "WEBVTT\n\n"
)

// RenditionPath is the master-relative path of a profile's playlist.
func RenditionPath(p profiles.Profile) string {
	return path.Join(p.Label, RenditionPlaylist)
}

// ThumbnailName returns the 1-based preview image name, e.g. thumb0001.jpg.
func ThumbnailName(index int) string {
	return fmt.Sprintf(ThumbnailPattern, index)
}

// Master renders the adaptive-bitrate master playlist in catalog order.
func Master(list []profiles.Profile) string {
	var b strings.Builder
	b.WriteString(masterHeader)
	for _, p := range list {
		fmt.Fprintf(&b, "#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%s\n", p.Bandwidth(), p.Resolution())
		b.WriteString(RenditionPath(p))
		b.WriteString("\n\n")
	}
	return b.String()
}

// ThumbnailCount is the number of preview frames sampled every interval seconds
// across duration seconds.
func ThumbnailCount(duration, interval float64) int {
	if duration <= 0 || interval <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return 0
	}
	return int(math.Ceil(duration / interval))
}

// Timeline renders count cues of interval seconds, cue i pointing at the
// (i+1)-th preview image.
func Timeline(count int, interval float64) string {
	var b strings.Builder
	b.WriteString(timelineHeader)
	for i := 0; i < count; i++ {
		start := float64(i) * interval
		end := float64(i+1) * interval
		b.WriteString(FormatTimestamp(start))
		b.WriteString(" --> ")
		b.WriteString(FormatTimestamp(end))
		b.WriteByte('\n')
		b.WriteString(ThumbnailName(i + 1))
		b.WriteString("\n\n")
	}
	return b.String()
}

// FormatTimestamp renders seconds as HH:MM:SS.mmm. Hours are not capped and
// sub-millisecond precision is truncated.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	// The epsilon absorbs binary representation error such as 4.35*1000.
	millis := int64(math.Floor(seconds*1000 + 1e-6))
	hours := millis / 3_600_000
	minutes := (millis / 60_000) % 60
	secs := (millis / 1000) % 60
	ms := millis % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, secs, ms)
}
