package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"transcoder/internal/encoding"
	"transcoder/internal/fileutil"
	"transcoder/internal/logging"
	"transcoder/internal/manifest"
	"transcoder/internal/profiles"
	"transcoder/internal/queue"
	"transcoder/internal/services"
	"transcoder/internal/staging"
	"transcoder/internal/storage"
)

const defaultThumbnailInterval = 5.0

// Result describes the published artifacts of a completed job.
type Result struct {
	MasterKey      string
	RenditionKeys  []string
	TimelineKey    string
	ThumbnailCount int
	UploadedFiles  int
}

// Options configures a Coordinator.
type Options struct {
	WorkDir           string
	KeyPrefix         string
	ThumbnailInterval float64
}

// Coordinator runs jobs through the transcode pipeline. It is safe for use by
// one job at a time; the workflow manager guarantees that.
type Coordinator struct {
	store    storage.Store
	engine   encoding.Engine
	catalog  profiles.Catalog
	opts     Options
	logger   *slog.Logger
	removeFn func(staging.Area) error
}

// NewCoordinator wires the pipeline collaborators.
func NewCoordinator(store storage.Store, engine encoding.Engine, catalog profiles.Catalog, opts Options, logger *slog.Logger) *Coordinator {
	if opts.ThumbnailInterval <= 0 {
		opts.ThumbnailInterval = defaultThumbnailInterval
	}
	opts.KeyPrefix = strings.Trim(strings.TrimSpace(opts.KeyPrefix), "/")
	return &Coordinator{
		store:    store,
		engine:   engine,
		catalog:  catalog,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
		removeFn: staging.Area.Remove,
	}
}

// KeyPrefix returns the storage prefix for a job's artifacts.
func (c *Coordinator) KeyPrefix(jobID string) string {
	if c.opts.KeyPrefix == "" {
		return jobID
	}
	return path.Join(c.opts.KeyPrefix, jobID)
}

// Run executes every stage for job. The working area is removed on all paths.
func (c *Coordinator) Run(ctx context.Context, job queue.Job) (Result, error) {
	if err := job.Validate(); err != nil {
		return Result{}, newError(StageDownload, "validate job", err)
	}
	ctx = services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(ctx, c.logger)
	started := time.Now()

	area := staging.NewArea(c.opts.WorkDir, job.ID)
	defer func() {
		if err := c.removeFn(area); err != nil {
			logging.WarnWithContext(logger, "working area cleanup failed", "work_area_cleanup_failed",
				logging.String("path", area.Dir),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the directory manually"),
				logging.String(logging.FieldImpact, "disk space not reclaimed until the next stale sweep"),
			)
		}
	}()
	if err := area.Create(); err != nil {
		return Result{}, newError(StageDownload, "prepare working area", err)
	}

	input, err := c.download(ctx, job, area)
	if err != nil {
		return Result{}, err
	}

	list := c.catalog.Profiles()
	if err := c.encodeRenditions(ctx, input, area, list); err != nil {
		return Result{}, err
	}

	thumbs, err := c.extractThumbnails(ctx, input, area)
	if err != nil {
		return Result{}, err
	}

	if err := writeFile(filepath.Join(area.OutputDir(), manifest.MasterName), manifest.Master(list)); err != nil {
		return Result{}, newError(StageTranscode, "write master playlist", err)
	}
	if err := writeFile(filepath.Join(area.OutputDir(), manifest.TimelineName), manifest.Timeline(thumbs.timeline, c.opts.ThumbnailInterval)); err != nil {
		return Result{}, newError(StageTranscode, "write thumbnail timeline", err)
	}

	result, err := c.upload(ctx, job, area, list, thumbs)
	if err != nil {
		return Result{}, err
	}

	logger.Info("job published",
		logging.String("master_key", result.MasterKey),
		logging.Int("renditions", len(result.RenditionKeys)),
		logging.Int("thumbnails", result.ThumbnailCount),
		logging.Int("uploaded_files", result.UploadedFiles),
		logging.Duration("elapsed", time.Since(started)),
		logging.String(logging.FieldEventType, "job_published"),
	)
	return result, nil
}

func (c *Coordinator) download(ctx context.Context, job queue.Job, area staging.Area) (string, error) {
	ctx = services.WithStage(ctx, string(StageDownload))
	body, err := c.store.Fetch(ctx, job.SourceKey)
	if err != nil {
		return "", newError(StageDownload, "fetch "+job.SourceKey, err)
	}
	defer body.Close()

	input := area.InputPath(job.DisplayName())
	written, err := fileutil.WriteStream(input, body)
	if err != nil {
		return "", newError(StageDownload, "store source", err)
	}
	logging.WithContext(ctx, c.logger).Info("source downloaded",
		logging.String("key", job.SourceKey),
		logging.Int64("bytes", written),
	)
	return input, nil
}

func (c *Coordinator) encodeRenditions(ctx context.Context, input string, area staging.Area, list []profiles.Profile) error {
	ctx = services.WithStage(ctx, string(StageTranscode))
	logger := logging.WithContext(ctx, c.logger)
	for _, p := range list {
		started := time.Now()
		req := encoding.RenditionRequest{Input: input, OutputDir: area.RenditionDir(p.Label), Profile: p}
		if err := c.engine.EncodeRendition(ctx, req); err != nil {
			return newError(StageTranscode, "encode "+p.Label, err)
		}
		logger.Info("rendition encoded",
			logging.String("profile", p.Label),
			logging.String("resolution", p.Resolution()),
			logging.Duration("elapsed", time.Since(started)),
		)
	}
	return nil
}

type thumbnailSet struct {
	images   int
	timeline int
}

func (c *Coordinator) extractThumbnails(ctx context.Context, input string, area staging.Area) (thumbnailSet, error) {
	ctx = services.WithStage(ctx, string(StageTranscode))
	logger := logging.WithContext(ctx, c.logger)

	duration, probeErr := c.engine.Probe(ctx, input)
	if probeErr != nil {
		logging.WarnWithContext(logger, "duration probe failed", "probe_failed",
			logging.Error(probeErr),
			logging.String(logging.FieldImpact, "timeline length follows the extracted frame count"),
		)
	}

	images, err := c.engine.ExtractThumbnails(ctx, encoding.ThumbnailRequest{Input: input, OutputDir: area.OutputDir()})
	if err != nil {
		return thumbnailSet{}, newError(StageTranscode, "extract thumbnails", err)
	}

	set := thumbnailSet{images: images, timeline: images}
	if expected := manifest.ThumbnailCount(duration, c.opts.ThumbnailInterval); expected > 0 && expected < images {
		set.timeline = expected
	}
	logger.Info("thumbnails extracted",
		logging.Int("images", set.images),
		logging.Int("timeline_cues", set.timeline),
		logging.Float64("duration_seconds", duration),
	)
	return set, nil
}

func (c *Coordinator) upload(ctx context.Context, job queue.Job, area staging.Area, list []profiles.Profile, thumbs thumbnailSet) (Result, error) {
	ctx = services.WithStage(ctx, string(StageUpload))
	prefix := c.KeyPrefix(job.ID)
	result := Result{ThumbnailCount: thumbs.timeline}

	put := func(localPath, key string) error {
		file, err := os.Open(localPath)
		if err != nil {
			return newError(StageUpload, "open "+filepath.Base(localPath), err)
		}
		defer file.Close()
		if err := c.store.Put(ctx, key, file, ContentType(localPath)); err != nil {
			return newError(StageUpload, "put "+key, err)
		}
		result.UploadedFiles++
		return nil
	}

	result.MasterKey = path.Join(prefix, manifest.MasterName)
	if err := put(filepath.Join(area.OutputDir(), manifest.MasterName), result.MasterKey); err != nil {
		return Result{}, err
	}

	for _, p := range list {
		dir := area.RenditionDir(p.Label)
		names, err := fileutil.RegularFiles(dir)
		if err != nil {
			return Result{}, newError(StageUpload, "list "+p.Label+" output", err)
		}
		for _, name := range names {
			if err := put(filepath.Join(dir, name), path.Join(prefix, p.Label, name)); err != nil {
				return Result{}, err
			}
		}
		result.RenditionKeys = append(result.RenditionKeys, path.Join(prefix, manifest.RenditionPath(p)))
	}

	for i := 1; i <= thumbs.images; i++ {
		name := manifest.ThumbnailName(i)
		if err := put(filepath.Join(area.OutputDir(), name), path.Join(prefix, name)); err != nil {
			return Result{}, err
		}
	}

	result.TimelineKey = path.Join(prefix, manifest.TimelineName)
	if err := put(filepath.Join(area.OutputDir(), manifest.TimelineName), result.TimelineKey); err != nil {
		return Result{}, err
	}
	return result, nil
}

func writeFile(name, content string) error {
	if err := os.WriteFile(name, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(name), err)
	}
	return nil
}
