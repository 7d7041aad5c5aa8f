package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"transcoder/internal/config"
	"transcoder/internal/daemon"
	"transcoder/internal/deps"
	"transcoder/internal/encoding"
	"transcoder/internal/history"
	"transcoder/internal/logging"
	"transcoder/internal/notifications"
	"transcoder/internal/pipeline"
	"transcoder/internal/preflight"
	"transcoder/internal/profiles"
	"transcoder/internal/storage"
	"transcoder/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the transcoder daemon and blocks until SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	level := cfg.Logging.Level
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:  level,
		Format: cfg.Logging.Format,
		File:   logging.FilePath(cfg.Paths.LogDir),
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	dependencies := preflight.CheckSystemDeps(cfg)
	logDependencySnapshot(logger, dependencies)

	catalog, err := profiles.FromConfig(cfg.Profiles)
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}

	store, err := storage.Open(signalCtx, cfg)
	if err != nil {
		logger.Error("open object storage", logging.Error(err))
		return err
	}
	logPreflight(signalCtx, logger, cfg, store)

	engine := encoding.NewFFmpeg(encoding.SettingsFromConfig(cfg.Transcode), logger)
	coordinator := pipeline.NewCoordinator(store, engine, catalog, pipeline.Options{
		WorkDir:           cfg.Paths.WorkDir,
		KeyPrefix:         cfg.Storage.KeyPrefix,
		ThumbnailInterval: cfg.Transcode.ThumbnailInterval,
	}, logger)

	managerOpts := []workflow.ManagerOption{workflow.WithBaseContext(signalCtx)}
	daemonOpts := []daemon.Option{
		daemon.WithCatalog(catalog),
		daemon.WithDependencies(dependencies),
	}
	if cfg.History.Enabled {
		historyStore, err := history.Open(cfg.History.Path)
		if err != nil {
			logger.Error("open history store", logging.Error(err))
			return err
		}
		defer historyStore.Close()
		managerOpts = append(managerOpts, workflow.WithRecorder(historyStore))
		daemonOpts = append(daemonOpts, daemon.WithHistory(historyStore))
	}

	notifier := notifications.NewService(cfg)
	manager := workflow.NewManager(coordinator, notifier, logger, managerOpts...)

	d, err := daemon.New(cfg, manager, logger, daemonOpts...)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	defer d.Stop()

	<-signalCtx.Done()
	logger.Info("transcoder daemon shutting down")
	return nil
}

func logDependencySnapshot(logger *slog.Logger, statuses []deps.Status) {
	attrs := []logging.Attr{logging.String(logging.FieldEventType, "dependency_snapshot")}
	for _, status := range statuses {
		key := strings.ToLower(status.Name)
		attrs = append(attrs,
			logging.Bool(key+"_available", status.Available),
			logging.String(key+"_binary", status.Command),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)

	if missing := deps.MissingRequired(statuses); len(missing) > 0 {
		logging.WarnWithContext(logger, "required dependencies missing", "dependency_missing",
			logging.String("missing", strings.Join(missing, ", ")),
			logging.String(logging.FieldErrorHint, "install ffmpeg or set transcode.ffmpeg_binary"),
			logging.String(logging.FieldImpact, "every job will fail at the transcode stage"),
		)
	}
}

func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config, store storage.Store) {
	for _, result := range preflight.Failed(preflight.RunAll(ctx, cfg, store)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "jobs may fail until the check passes"),
		)
	}
}
