package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"transcoder/internal/config"
	"transcoder/internal/services"
)

// Store reads source objects and writes published artifacts.
type Store interface {
	Fetch(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
}

// Checker is implemented by stores that can verify connectivity up front.
type Checker interface {
	Check(ctx context.Context) error
}

// Open builds the backend selected by cfg.Storage.Backend.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Backend)) {
	case config.StorageBackendR2:
		return NewR2(ctx, cfg.Storage)
	case config.StorageBackendLocal:
		return NewLocal(cfg.Storage.LocalRoot)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "storage", "open",
			fmt.Sprintf("unsupported backend %q", cfg.Storage.Backend), nil)
	}
}

func normalizeKey(key string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", services.Wrap(services.ErrValidation, "storage", "key", "object key is required", nil)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", services.Wrap(services.ErrValidation, "storage", "key",
				fmt.Sprintf("object key %q escapes the bucket", key), nil)
		}
	}
	return key, nil
}
