package config

const (
	defaultConfigPath            = "~/.config/transcoder/config.toml"
	defaultWorkDir               = "/tmp/transcoder"
	defaultLogDir                = "~/.local/share/transcoder/logs"
	defaultAPIBind               = "0.0.0.0:3000"
	defaultStorageBackend        = StorageBackendR2
	defaultLocalRoot             = "~/.local/share/transcoder/objects"
	defaultKeyPrefix             = "hls"
	defaultBackendRequestTimeout = 10
	defaultFFmpegBinary          = "ffmpeg"
	defaultFFprobeBinary         = "ffprobe"
	defaultPreset                = "veryfast"
	defaultSegmentSeconds        = 10
	defaultThumbnailInterval     = 5.0
	defaultThumbnailWidth        = 160
	defaultThumbnailHeight       = 90
	defaultHistoryPath           = "~/.local/share/transcoder/history.db"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Storage backends accepted by storage.backend.
const (
	StorageBackendR2    = "r2"
	StorageBackendLocal = "local"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Storage: Storage{
			Backend:   defaultStorageBackend,
			LocalRoot: defaultLocalRoot,
			KeyPrefix: defaultKeyPrefix,
		},
		Backend: Backend{
			RequestTimeout: defaultBackendRequestTimeout,
		},
		Transcode: Transcode{
			FFmpegBinary:      defaultFFmpegBinary,
			FFprobeBinary:     defaultFFprobeBinary,
			Preset:            defaultPreset,
			SegmentSeconds:    defaultSegmentSeconds,
			ThumbnailInterval: defaultThumbnailInterval,
			ThumbnailWidth:    defaultThumbnailWidth,
			ThumbnailHeight:   defaultThumbnailHeight,
		},
		History: History{
			Enabled: true,
			Path:    defaultHistoryPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
