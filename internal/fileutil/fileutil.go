package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// WriteStream copies src into a new file at dst with default permissions
// (0o644). A partially written dst is removed on failure.
func WriteStream(dst string, src io.Reader) (int64, error) {
	return WriteStreamMode(dst, src, 0o644)
}

// WriteStreamMode is WriteStream with an explicit file mode.
func WriteStreamMode(dst string, src io.Reader, mode os.FileMode) (int64, error) {
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return 0, err
	}
	written, err := io.Copy(out, src)
	if err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return written, fmt.Errorf("write %s: %w", filepath.Base(dst), err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return written, err
	}
	return written, nil
}

// RegularFiles lists the regular files directly inside dir, sorted by name.
func RegularFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
