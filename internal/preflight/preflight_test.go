package preflight

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"transcoder/internal/config"
	"transcoder/internal/storage"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	if r := CheckDirectoryAccess("Work", dir); !r.Passed {
		t.Fatalf("expected pass, got %+v", r)
	}
	if r := CheckDirectoryAccess("Work", filepath.Join(dir, "missing")); r.Passed || !strings.Contains(r.Detail, "does not exist") {
		t.Fatalf("expected missing failure, got %+v", r)
	}
	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if r := CheckDirectoryAccess("Work", file); r.Passed || !strings.Contains(r.Detail, "not a directory") {
		t.Fatalf("expected not-a-directory failure, got %+v", r)
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if r := CheckFreeSpace("Space", dir, 1); !r.Passed {
		t.Fatalf("expected pass with 1 byte minimum, got %+v", r)
	}
	if r := CheckFreeSpace("Space", dir, ^uint64(0)); r.Passed || !strings.Contains(r.Detail, "below") {
		t.Fatalf("expected failure with huge minimum, got %+v", r)
	}
	if r := CheckFreeSpace("Space", filepath.Join(dir, "missing"), 1); r.Passed {
		t.Fatalf("expected statfs failure, got %+v", r)
	}
}

func TestCheckBackend(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ok.Close()
	if r := CheckBackend(context.Background(), ok.URL); !r.Passed {
		t.Fatalf("expected 404 to count as reachable, got %+v", r)
	}

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()
	if r := CheckBackend(context.Background(), broken.URL); r.Passed {
		t.Fatalf("expected 502 to fail, got %+v", r)
	}

	if r := CheckBackend(context.Background(), " "); r.Passed || r.Detail != "missing url" {
		t.Fatalf("unexpected result %+v", r)
	}
}

type plainStore struct{}

func (plainStore) Fetch(context.Context, string) (io.ReadCloser, error) { return nil, nil }
func (plainStore) Put(context.Context, string, io.Reader, string) error { return nil }

type failingStore struct{ plainStore }

func (failingStore) Check(context.Context) error { return errors.New("access denied") }

func TestCheckStorage(t *testing.T) {
	if r := CheckStorage(context.Background(), plainStore{}); !r.Passed {
		t.Fatalf("expected store without checker to pass, got %+v", r)
	}
	if r := CheckStorage(context.Background(), failingStore{}); r.Passed || r.Detail != "access denied" {
		t.Fatalf("expected failure, got %+v", r)
	}
	local, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if r := CheckStorage(context.Background(), local); !r.Passed {
		t.Fatalf("expected local store to pass, got %+v", r)
	}
}

func TestRunAllIncludesConfiguredChecks(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Storage.Backend = config.StorageBackendLocal
	cfg.Storage.LocalRoot = t.TempDir()
	cfg.Backend.URL = ""

	results := RunAll(context.Background(), &cfg, nil)
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}
	want := "Work directory,Work directory space,Local storage"
	if strings.Join(names, ",") != want {
		t.Fatalf("unexpected checks %v", names)
	}
	if RunAll(context.Background(), nil, nil) != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestFailed(t *testing.T) {
	results := []Result{{Name: "a", Passed: true}, {Name: "b"}}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "b" {
		t.Fatalf("unexpected failed list %+v", failed)
	}
}

func TestFormatBytes(t *testing.T) {
	cases := map[uint64]string{512: "512 B", 2048: "2.0 KiB", 5 << 30: "5.0 GiB"}
	for n, want := range cases {
		if got := formatBytes(n); got != want {
			t.Fatalf("formatBytes(%d) = %q, want %q", n, got, want)
		}
	}
}
