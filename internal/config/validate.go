package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateTranscode(); err != nil {
		return err
	}
	if err := c.validateProfiles(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageBackendR2:
		if c.Storage.AccountID == "" && c.Storage.Endpoint == "" {
			return fmt.Errorf("storage.account_id is required for the r2 backend. Set R2_ACCOUNT_ID or edit %s", configHint())
		}
		if c.Storage.AccessKeyID == "" || c.Storage.SecretAccessKey == "" {
			return errors.New("storage.access_key_id and storage.secret_access_key are required for the r2 backend")
		}
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket is required for the r2 backend")
		}
	case StorageBackendLocal:
		if c.Storage.LocalRoot == "" {
			return errors.New("storage.local_root must be set for the local backend")
		}
	default:
		return fmt.Errorf("storage.backend: unsupported value %q (want r2 or local)", c.Storage.Backend)
	}
	return nil
}

func (c *Config) validateBackend() error {
	if c.Backend.RequestTimeout < 0 {
		return errors.New("backend.request_timeout must be positive")
	}
	if c.Backend.URL == "" {
		return nil
	}
	parsed, err := url.Parse(c.Backend.URL)
	if err != nil {
		return fmt.Errorf("backend.url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("backend.url must use http or https, got %q", c.Backend.URL)
	}
	return nil
}

func (c *Config) validateTranscode() error {
	if c.Transcode.SegmentSeconds <= 0 {
		return errors.New("transcode.segment_seconds must be positive")
	}
	if c.Transcode.ThumbnailInterval <= 0 {
		return errors.New("transcode.thumbnail_interval must be positive")
	}
	if c.Transcode.ThumbnailWidth <= 0 || c.Transcode.ThumbnailHeight <= 0 {
		return errors.New("transcode.thumbnail_width and transcode.thumbnail_height must be positive")
	}
	return nil
}

func (c *Config) validateProfiles() error {
	seen := make(map[string]struct{}, len(c.Profiles))
	for i, p := range c.Profiles {
		if p.Label == "" {
			return fmt.Errorf("profiles[%d].label must be set", i)
		}
		if strings.ContainsAny(p.Label, `/\ `) || p.Label == "." || p.Label == ".." {
			return fmt.Errorf("profiles[%d].label %q must be a single path segment", i, p.Label)
		}
		if _, dup := seen[p.Label]; dup {
			return fmt.Errorf("profiles[%d].label %q is duplicated", i, p.Label)
		}
		seen[p.Label] = struct{}{}
		if p.Resolution == "" || p.VideoBitrate == "" || p.AudioBitrate == "" {
			return fmt.Errorf("profiles[%d] (%s) requires resolution, video_bitrate, and audio_bitrate", i, p.Label)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func configHint() string {
	path, err := DefaultConfigPath()
	if err != nil {
		return defaultConfigPath
	}
	return path + " (create with 'transcoder config init')"
}
