package pipeline

import (
	"path/filepath"
	"strings"
)

// Content types attached to uploaded artifacts.
const (
	ContentTypePlaylist  = "application/vnd.apple.mpegurl"
	ContentTypeSegment   = "video/mp2t"
	ContentTypeThumbnail = "image/jpeg"
	ContentTypeTimeline  = "text/vtt"
	ContentTypeDefault   = "application/octet-stream"
)

// ContentType maps an artifact file name to its upload content type.
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".m3u8":
		return ContentTypePlaylist
	case ".ts":
		return ContentTypeSegment
	case ".jpg", ".jpeg":
		return ContentTypeThumbnail
	case ".vtt":
		return ContentTypeTimeline
	default:
		return ContentTypeDefault
	}
}
