package manifest_test

import (
	"strings"
	"testing"

	"transcoder/internal/manifest"
	"transcoder/internal/profiles"
)

func TestMasterPlaylistFormat(t *testing.T) {
	list := []profiles.Profile{
		{Label: "360p", Width: 640, Height: 360, VideoBitrate: 800, AudioBitrate: 96},
		{Label: "720p", Width: 1280, Height: 720, VideoBitrate: 2800, AudioBitrate: 128},
	}
	want := "#EXTM3U\n#EXT-X-VERSION:3\n\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=896000,RESOLUTION=640x360\n360p/playlist.m3u8\n\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=2928000,RESOLUTION=1280x720\n720p/playlist.m3u8\n\n"
	if got := manifest.Master(list); got != want {
		t.Fatalf("unexpected master playlist:\n%q\nwant:\n%q", got, want)
	}
}

func TestMasterPlaylistDefaultCatalogIsASCII(t *testing.T) {
	out := manifest.Master(profiles.Default().Profiles())
	for i := 0; i < len(out); i++ {
		if out[i] > 0x7f {
			t.Fatalf("non-ASCII byte at %d", i)
		}
	}
	if strings.Count(out, "#EXT-X-STREAM-INF") != 4 {
		t.Fatalf("expected 4 stream entries, got:\n%s", out)
	}
	if strings.Index(out, "360p/") > strings.Index(out, "1080p/") {
		t.Fatal("expected catalog order in master playlist")
	}
}

func TestMasterPlaylistEmpty(t *testing.T) {
	if got := manifest.Master(nil); got != "#EXTM3U\n#EXT-X-VERSION:3\n\n" {
		t.Fatalf("unexpected empty master %q", got)
	}
}

func TestThumbnailCount(t *testing.T) {
	cases := []struct {
		duration, interval float64
		want               int
	}{
		{12, 5, 3},
		{10, 5, 2},
		{0.2, 5, 1},
		{0, 5, 0},
		{12, 0, 0},
		{-3, 5, 0},
	}
	for _, tc := range cases {
		if got := manifest.ThumbnailCount(tc.duration, tc.interval); got != tc.want {
			t.Fatalf("ThumbnailCount(%v, %v) = %d, want %d", tc.duration, tc.interval, got, tc.want)
		}
	}
}

func TestTimelineEntries(t *testing.T) {
	count := manifest.ThumbnailCount(12, 5)
	want := "WEBVTT\n\n" +
		"00:00:00.000 --> 00:00:05.000\nthumb0001.jpg\n\n" +
		"00:00:05.000 --> 00:00:10.000\nthumb0002.jpg\n\n" +
		"00:00:10.000 --> 00:00:15.000\nthumb0003.jpg\n\n"
	if got := manifest.Timeline(count, 5); got != want {
		t.Fatalf("unexpected timeline:\n%q\nwant:\n%q", got, want)
	}
}

func TestFormatTimestamp(t *testing.T) {
	cases := map[float64]string{
		0:         "00:00:00.000",
		5:         "00:00:05.000",
		61.5:      "00:01:01.500",
		3599.9999: "00:59:59.999",
		4.35:      "00:00:04.350",
		3600:      "01:00:00.000",
		360000.25: "100:00:00.250",
		-1:        "00:00:00.000",
	}
	for in, want := range cases {
		if got := manifest.FormatTimestamp(in); got != want {
			t.Fatalf("FormatTimestamp(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestThumbnailNameAndRenditionPath(t *testing.T) {
	if got := manifest.ThumbnailName(12); got != "thumb0012.jpg" {
		t.Fatalf("unexpected thumbnail name %q", got)
	}
	p := profiles.Profile{Label: "480p"}
	if got := manifest.RenditionPath(p); got != "480p/playlist.m3u8" {
		t.Fatalf("unexpected rendition path %q", got)
	}
}
