package config

import (
	"fmt"
	"net"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeBackend()
	c.normalizeTranscode()
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if port, ok := lookupEnv("PORT"); ok && (c.Paths.APIBind == "" || c.Paths.APIBind == defaultAPIBind) {
		c.Paths.APIBind = net.JoinHostPort("0.0.0.0", port)
	}
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	if c.Paths.APISecret == "" {
		if value, ok := lookupEnv("API_SECRET"); ok {
			c.Paths.APISecret = value
		}
	}
	c.Paths.APISecret = strings.TrimSpace(c.Paths.APISecret)
	return nil
}

func (c *Config) normalizeStorage() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaultStorageBackend
	}
	fallbacks := []struct {
		target *string
		env    string
	}{
		{&c.Storage.AccountID, "R2_ACCOUNT_ID"},
		{&c.Storage.AccessKeyID, "R2_ACCESS_KEY_ID"},
		{&c.Storage.SecretAccessKey, "R2_SECRET_ACCESS_KEY"},
		{&c.Storage.Bucket, "R2_BUCKET_NAME"},
	}
	for _, fb := range fallbacks {
		*fb.target = strings.TrimSpace(*fb.target)
		if *fb.target == "" {
			if value, ok := lookupEnv(fb.env); ok {
				*fb.target = value
			}
		}
	}
	c.Storage.Endpoint = strings.TrimRight(strings.TrimSpace(c.Storage.Endpoint), "/")
	c.Storage.KeyPrefix = strings.Trim(strings.TrimSpace(c.Storage.KeyPrefix), "/")
	if strings.TrimSpace(c.Storage.LocalRoot) == "" {
		c.Storage.LocalRoot = defaultLocalRoot
	}
	var err error
	if c.Storage.LocalRoot, err = expandPath(c.Storage.LocalRoot); err != nil {
		return fmt.Errorf("storage.local_root: %w", err)
	}
	return nil
}

func (c *Config) normalizeBackend() {
	if strings.TrimSpace(c.Backend.URL) == "" {
		if value, ok := lookupEnv("BACKEND_URL"); ok {
			c.Backend.URL = value
		}
	}
	c.Backend.URL = strings.TrimRight(strings.TrimSpace(c.Backend.URL), "/")
	if strings.TrimSpace(c.Backend.Secret) == "" {
		if value, ok := lookupEnv("BACKEND_SECRET"); ok {
			c.Backend.Secret = value
		}
	}
	if c.Backend.RequestTimeout == 0 {
		c.Backend.RequestTimeout = defaultBackendRequestTimeout
	}
}

func (c *Config) normalizeTranscode() {
	c.Transcode.FFmpegBinary = strings.TrimSpace(c.Transcode.FFmpegBinary)
	if c.Transcode.FFmpegBinary == "" {
		c.Transcode.FFmpegBinary = defaultFFmpegBinary
	}
	c.Transcode.FFprobeBinary = strings.TrimSpace(c.Transcode.FFprobeBinary)
	if c.Transcode.FFprobeBinary == "" {
		c.Transcode.FFprobeBinary = defaultFFprobeBinary
	}
	c.Transcode.Preset = strings.TrimSpace(c.Transcode.Preset)
	for i := range c.Profiles {
		c.Profiles[i].Label = strings.TrimSpace(c.Profiles[i].Label)
		c.Profiles[i].Resolution = strings.ToLower(strings.TrimSpace(c.Profiles[i].Resolution))
		c.Profiles[i].VideoBitrate = strings.ToLower(strings.TrimSpace(c.Profiles[i].VideoBitrate))
		c.Profiles[i].AudioBitrate = strings.ToLower(strings.TrimSpace(c.Profiles[i].AudioBitrate))
	}
}

func (c *Config) normalizeHistory() error {
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = defaultHistoryPath
	}
	var err error
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}
