package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"transcoder/internal/config"
	"transcoder/internal/queue"
)

const userAgent = "Transcoder-Go/0.1.0"

// Update is one status transition for a job. ManifestKey is set only for
// completed jobs and QueuePosition only for queued jobs.
type Update struct {
	JobID         string
	Status        queue.Status
	ManifestKey   *string
	QueuePosition *int
}

// Queued builds a queued update at the given 1-based position.
func Queued(jobID string, position int) Update {
	return Update{JobID: jobID, Status: queue.StatusQueued, QueuePosition: &position}
}

// Processing builds a processing update.
func Processing(jobID string) Update {
	return Update{JobID: jobID, Status: queue.StatusProcessing}
}

// Completed builds a completed update carrying the master manifest key.
func Completed(jobID, manifestKey string) Update {
	return Update{JobID: jobID, Status: queue.StatusCompleted, ManifestKey: &manifestKey}
}

// Failed builds a failed update.
func Failed(jobID string) Update {
	return Update{JobID: jobID, Status: queue.StatusFailed}
}

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyStatus(ctx context.Context, update Update) error
}

// NewService builds a notifier backed by the configured backend URL.
// When no URL is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	base := strings.TrimRight(strings.TrimSpace(cfg.Backend.URL), "/")
	if base == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Backend.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &httpService{
		baseURL: base,
		secret:  cfg.NotifySecret(),
		client:  &http.Client{Timeout: timeout},
	}
}

type statusBody struct {
	Status            queue.Status `json:"status"`
	MasterPlaylistKey *string      `json:"master_playlist_key"`
	QueuePosition     *int         `json:"queue_position"`
}

type httpService struct {
	baseURL string
	secret  string
	client  *http.Client
}

func (h *httpService) NotifyStatus(ctx context.Context, update Update) error {
	if h == nil || h.client == nil {
		return nil
	}
	jobID := strings.TrimSpace(update.JobID)
	if jobID == "" {
		return fmt.Errorf("notify status: job id is required")
	}

	payload, err := json.Marshal(statusBody{
		Status:            update.Status,
		MasterPlaylistKey: update.ManifestKey,
		QueuePosition:     update.QueuePosition,
	})
	if err != nil {
		return fmt.Errorf("encode status payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/videos/%s/status", h.baseURL, url.PathEscape(jobID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build status request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	if h.secret != "" {
		req.Header.Set("Authorization", "Bearer "+h.secret)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("send status update: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("backend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyStatus(context.Context, Update) error { return nil }
