package notifications_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"transcoder/internal/config"
	"transcoder/internal/notifications"
	"transcoder/internal/queue"
)

type capturedRequest struct {
	method string
	path   string
	auth   string
	body   map[string]any
}

func newBackend(t *testing.T, status int) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var captured []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		var body map[string]any
		if err := json.Unmarshal(data, &body); err != nil {
			t.Errorf("decode body %q: %v", data, err)
		}
		captured = append(captured, capturedRequest{
			method: r.Method,
			path:   r.URL.EscapedPath(),
			auth:   r.Header.Get("Authorization"),
			body:   body,
		})
		w.WriteHeader(status)
		_, _ = w.Write([]byte("backend says no"))
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func TestNewServiceReturnsNoopWhenURLMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Backend.URL = "  "
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyStatus(context.Background(), notifications.Failed("vid")); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNotifyStatusSendsPutWithBearer(t *testing.T) {
	srv, captured := newBackend(t, http.StatusOK)
	cfg := config.Default()
	cfg.Backend.URL = srv.URL + "/"
	cfg.Paths.APISecret = "shared"

	svc := notifications.NewService(&cfg)
	if err := svc.NotifyStatus(context.Background(), notifications.Queued("vid-1", 3)); err != nil {
		t.Fatalf("NotifyStatus returned error: %v", err)
	}
	if len(*captured) != 1 {
		t.Fatalf("expected 1 request, got %d", len(*captured))
	}
	got := (*captured)[0]
	if got.method != http.MethodPut {
		t.Fatalf("expected PUT, got %s", got.method)
	}
	if got.path != "/api/videos/vid-1/status" {
		t.Fatalf("unexpected path %q", got.path)
	}
	if got.auth != "Bearer shared" {
		t.Fatalf("unexpected authorization %q", got.auth)
	}
	if got.body["status"] != "queued" || got.body["queue_position"] != float64(3) {
		t.Fatalf("unexpected body %#v", got.body)
	}
	if v, ok := got.body["master_playlist_key"]; !ok || v != nil {
		t.Fatalf("expected explicit null manifest key, got %#v", got.body)
	}
}

func TestNotifyStatusPrefersBackendSecret(t *testing.T) {
	srv, captured := newBackend(t, http.StatusNoContent)
	cfg := config.Default()
	cfg.Backend.URL = srv.URL
	cfg.Backend.Secret = "backend-only"
	cfg.Paths.APISecret = "shared"

	if err := notifications.NewService(&cfg).NotifyStatus(context.Background(), notifications.Completed("vid-2", "hls/vid-2/master.m3u8")); err != nil {
		t.Fatalf("NotifyStatus returned error: %v", err)
	}
	got := (*captured)[0]
	if got.auth != "Bearer backend-only" {
		t.Fatalf("unexpected authorization %q", got.auth)
	}
	if got.body["status"] != string(queue.StatusCompleted) || got.body["master_playlist_key"] != "hls/vid-2/master.m3u8" {
		t.Fatalf("unexpected body %#v", got.body)
	}
	if v, ok := got.body["queue_position"]; !ok || v != nil {
		t.Fatalf("expected explicit null queue position, got %#v", got.body)
	}
}

func TestNotifyStatusReportsNon2xx(t *testing.T) {
	srv, _ := newBackend(t, http.StatusInternalServerError)
	cfg := config.Default()
	cfg.Backend.URL = srv.URL

	err := notifications.NewService(&cfg).NotifyStatus(context.Background(), notifications.Processing("vid-3"))
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if !strings.Contains(err.Error(), "500") || !strings.Contains(err.Error(), "backend says no") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestNotifyStatusRequiresJobID(t *testing.T) {
	srv, captured := newBackend(t, http.StatusOK)
	cfg := config.Default()
	cfg.Backend.URL = srv.URL

	if err := notifications.NewService(&cfg).NotifyStatus(context.Background(), notifications.Failed(" ")); err == nil {
		t.Fatal("expected error for empty job id")
	}
	if len(*captured) != 0 {
		t.Fatalf("expected no request, got %d", len(*captured))
	}
}
