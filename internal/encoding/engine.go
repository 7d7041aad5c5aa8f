package encoding

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"transcoder/internal/config"
	"transcoder/internal/logging"
	"transcoder/internal/manifest"
	"transcoder/internal/media/ffprobe"
	"transcoder/internal/profiles"
	"transcoder/internal/services"
)

// RenditionRequest asks for one HLS rendition of Input written into OutputDir.
type RenditionRequest struct {
	Input     string
	OutputDir string
	Profile   profiles.Profile
}

// ThumbnailRequest asks for preview frames of Input written into OutputDir.
type ThumbnailRequest struct {
	Input     string
	OutputDir string
}

// Engine is the media transcoding capability.
type Engine interface {
	EncodeRendition(ctx context.Context, req RenditionRequest) error
	ExtractThumbnails(ctx context.Context, req ThumbnailRequest) (int, error)
	Probe(ctx context.Context, input string) (float64, error)
}

// Settings holds the ffmpeg options shared by every job.
type Settings struct {
	FFmpegBinary      string
	FFprobeBinary     string
	Preset            string
	SegmentSeconds    int
	ThumbnailInterval float64
	ThumbnailWidth    int
	ThumbnailHeight   int
}

// SettingsFromConfig copies the [transcode] section.
func SettingsFromConfig(cfg config.Transcode) Settings {
	return Settings{
		FFmpegBinary:      cfg.FFmpegBinary,
		FFprobeBinary:     cfg.FFprobeBinary,
		Preset:            cfg.Preset,
		SegmentSeconds:    cfg.SegmentSeconds,
		ThumbnailInterval: cfg.ThumbnailInterval,
		ThumbnailWidth:    cfg.ThumbnailWidth,
		ThumbnailHeight:   cfg.ThumbnailHeight,
	}
}

// FFmpeg implements Engine with the ffmpeg and ffprobe binaries.
type FFmpeg struct {
	settings Settings
	runner   commandRunner
	inspect  func(ctx context.Context, binary, path string) (ffprobe.Result, error)
	logger   *slog.Logger
}

// NewFFmpeg builds the production engine.
func NewFFmpeg(settings Settings, logger *slog.Logger) *FFmpeg {
	if settings.FFmpegBinary == "" {
		settings.FFmpegBinary = "ffmpeg"
	}
	if settings.FFprobeBinary == "" {
		settings.FFprobeBinary = "ffprobe"
	}
	return &FFmpeg{
		settings: settings,
		runner:   execRunner{},
		inspect:  ffprobe.Inspect,
		logger:   logging.NewComponentLogger(logger, "encoding"),
	}
}

// Settings returns the engine configuration.
func (f *FFmpeg) Settings() Settings {
	return f.settings
}

func (f *FFmpeg) EncodeRendition(ctx context.Context, req RenditionRequest) error {
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create rendition directory: %w", err)
	}
	args := f.renditionArgs(req)
	logging.WithContext(ctx, f.logger).Debug("encoding rendition",
		logging.String("profile", req.Profile.Label),
		logging.String("command", f.settings.FFmpegBinary+" "+strings.Join(args, " ")),
	)
	if err := f.run(ctx, "encode "+req.Profile.Label, args); err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Join(req.OutputDir, manifest.RenditionPlaylist)); err != nil {
		return services.Wrap(services.ErrExternalTool, "encoding", "encode "+req.Profile.Label,
			"ffmpeg finished without writing a playlist", err)
	}
	return nil
}

// ExtractThumbnails returns the number of images written.
func (f *FFmpeg) ExtractThumbnails(ctx context.Context, req ThumbnailRequest) (int, error) {
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return 0, fmt.Errorf("create thumbnail directory: %w", err)
	}
	if err := f.run(ctx, "thumbnails", f.thumbnailArgs(req)); err != nil {
		return 0, err
	}
	return CountThumbnails(req.OutputDir)
}

// Probe reports the container duration in seconds, 0 when unknown.
func (f *FFmpeg) Probe(ctx context.Context, input string) (float64, error) {
	result, err := f.inspect(ctx, f.settings.FFprobeBinary, input)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "encoding", "probe", "ffprobe failed", err)
	}
	duration := result.DurationSeconds()
	if math.IsNaN(duration) || duration < 0 {
		return 0, nil
	}
	return duration, nil
}

func (f *FFmpeg) run(ctx context.Context, operation string, args []string) error {
	result, err := f.runner.Run(ctx, f.settings.FFmpegBinary, args...)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return services.Wrap(services.ErrTimeout, "encoding", operation, "ffmpeg interrupted", ctx.Err())
	}
	return services.Wrap(services.ErrExternalTool, "encoding", operation,
		fmt.Sprintf("ffmpeg exited with code %d: %s", result.ExitCode, tail(result.Stderr, 512)), err)
}

func (f *FFmpeg) renditionArgs(req RenditionRequest) []string {
	p := req.Profile
	args := []string{
		"-hide_banner", "-y",
		"-i", req.Input,
		"-vf", "scale=" + p.Resolution(),
		"-c:v", "libx264",
	}
	if preset := strings.TrimSpace(f.settings.Preset); preset != "" {
		args = append(args, "-preset", preset)
	}
	segment := f.settings.SegmentSeconds
	if segment <= 0 {
		segment = 10
	}
	args = append(args,
		"-b:v", p.VideoRate(),
		"-c:a", "aac",
		"-b:a", p.AudioRate(),
		"-hls_time", strconv.Itoa(segment),
		"-hls_list_size", "0",
		"-hls_segment_filename", filepath.Join(req.OutputDir, manifest.SegmentPattern),
		"-f", "hls",
		filepath.Join(req.OutputDir, manifest.RenditionPlaylist),
	)
	return args
}

func (f *FFmpeg) thumbnailArgs(req ThumbnailRequest) []string {
	filter := fmt.Sprintf("fps=1/%s,scale=%d:%d",
		strconv.FormatFloat(f.interval(), 'f', -1, 64),
		f.settings.ThumbnailWidth, f.settings.ThumbnailHeight)
	return []string{
		"-hide_banner", "-y",
		"-i", req.Input,
		"-vf", filter,
		"-q:v", "5",
		filepath.Join(req.OutputDir, manifest.ThumbnailPattern),
	}
}

func (f *FFmpeg) interval() float64 {
	if f.settings.ThumbnailInterval > 0 {
		return f.settings.ThumbnailInterval
	}
	return 5
}

// CountThumbnails counts consecutive preview images starting at thumb0001.jpg.
func CountThumbnails(dir string) (int, error) {
	count := 0
	for {
		_, err := os.Stat(filepath.Join(dir, manifest.ThumbnailName(count+1)))
		if err != nil {
			if os.IsNotExist(err) {
				return count, nil
			}
			return count, fmt.Errorf("stat thumbnail: %w", err)
		}
		count++
	}
}

func tail(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return "..." + s[len(s)-limit:]
}
