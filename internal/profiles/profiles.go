// Package profiles defines the rendition ladder every job is encoded into.
//
// The catalog is built once at process start and shared read-only; its order
// drives both encode order and master manifest order.
package profiles

import (
	"fmt"
	"strconv"
	"strings"

	"transcoder/internal/config"
)

// Profile is one target rendition. Bitrates are in kbit/s.
type Profile struct {
	Label        string
	Width        int
	Height       int
	VideoBitrate int
	AudioBitrate int
}

// Resolution renders the profile size as WxH.
func (p Profile) Resolution() string {
	return fmt.Sprintf("%dx%d", p.Width, p.Height)
}

// Bandwidth is the combined video and audio bitrate in bits per second.
func (p Profile) Bandwidth() int {
	return (p.VideoBitrate + p.AudioBitrate) * 1000
}

// VideoRate renders the video bitrate in ffmpeg notation (e.g. 800k).
func (p Profile) VideoRate() string {
	return strconv.Itoa(p.VideoBitrate) + "k"
}

// AudioRate renders the audio bitrate in ffmpeg notation (e.g. 96k).
func (p Profile) AudioRate() string {
	return strconv.Itoa(p.AudioBitrate) + "k"
}

// Catalog is an ordered, immutable set of profiles.
type Catalog struct {
	profiles []Profile
}

var defaultProfiles = []Profile{
	{Label: "360p", Width: 640, Height: 360, VideoBitrate: 800, AudioBitrate: 96},
	{Label: "480p", Width: 854, Height: 480, VideoBitrate: 1400, AudioBitrate: 128},
	{Label: "720p", Width: 1280, Height: 720, VideoBitrate: 2800, AudioBitrate: 128},
	{Label: "1080p", Width: 1920, Height: 1080, VideoBitrate: 5000, AudioBitrate: 192},
}

// Default returns the built-in 360p through 1080p ladder.
func Default() Catalog {
	return New(defaultProfiles...)
}

// New builds a catalog from the given profiles in order.
func New(profiles ...Profile) Catalog {
	return Catalog{profiles: append([]Profile(nil), profiles...)}
}

// FromConfig builds the catalog from [[profiles]] entries, falling back to the
// built-in ladder when none are configured.
func FromConfig(entries []config.Profile) (Catalog, error) {
	if len(entries) == 0 {
		return Default(), nil
	}
	out := make([]Profile, 0, len(entries))
	for _, entry := range entries {
		width, height, err := ParseResolution(entry.Resolution)
		if err != nil {
			return Catalog{}, fmt.Errorf("profile %s: %w", entry.Label, err)
		}
		video, err := ParseBitrate(entry.VideoBitrate)
		if err != nil {
			return Catalog{}, fmt.Errorf("profile %s video bitrate: %w", entry.Label, err)
		}
		audio, err := ParseBitrate(entry.AudioBitrate)
		if err != nil {
			return Catalog{}, fmt.Errorf("profile %s audio bitrate: %w", entry.Label, err)
		}
		out = append(out, Profile{
			Label:        strings.TrimSpace(entry.Label),
			Width:        width,
			Height:       height,
			VideoBitrate: video,
			AudioBitrate: audio,
		})
	}
	return New(out...), nil
}

// Profiles returns a copy of the catalog entries in order.
func (c Catalog) Profiles() []Profile {
	return append([]Profile(nil), c.profiles...)
}

// Len reports the number of profiles.
func (c Catalog) Len() int {
	return len(c.profiles)
}

// Labels returns the profile labels in order.
func (c Catalog) Labels() []string {
	labels := make([]string, len(c.profiles))
	for i, p := range c.profiles {
		labels[i] = p.Label
	}
	return labels
}

// ParseBitrate accepts "800k", "1.5m" or a bare kbit/s number and returns kbit/s.
func ParseBitrate(value string) (int, error) {
	raw := strings.ToLower(strings.TrimSpace(value))
	if raw == "" {
		return 0, fmt.Errorf("empty bitrate")
	}
	multiplier := 1.0
	switch {
	case strings.HasSuffix(raw, "k"):
		raw = strings.TrimSuffix(raw, "k")
	case strings.HasSuffix(raw, "m"):
		raw = strings.TrimSuffix(raw, "m")
		multiplier = 1000
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid bitrate %q", value)
	}
	kbps := int(n * multiplier)
	if kbps < 1 {
		return 0, fmt.Errorf("bitrate %q is below 1 kbit/s", value)
	}
	return kbps, nil
}

// ParseResolution parses "640x360" into width and height.
func ParseResolution(value string) (int, int, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(value)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid resolution %q", value)
	}
	width, errW := strconv.Atoi(w)
	height, errH := strconv.Atoi(h)
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("invalid resolution %q", value)
	}
	return width, height, nil
}
