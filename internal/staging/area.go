package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AreaPrefix names every job working directory.
const AreaPrefix = "transcode-"

const outputDirName = "output"

// Area is the scratch directory for one job.
type Area struct {
	Dir string
}

// NewArea returns the working area for jobID below workDir without touching
// the filesystem.
func NewArea(workDir, jobID string) Area {
	return Area{Dir: filepath.Join(workDir, AreaPrefix+SafeName(jobID))}
}

// Create makes the area and its output directory. Existing content is kept.
func (a Area) Create() error {
	if err := os.MkdirAll(a.OutputDir(), 0o755); err != nil {
		return fmt.Errorf("create working area: %w", err)
	}
	return nil
}

// Remove deletes the area and everything below it.
func (a Area) Remove() error {
	if err := os.RemoveAll(a.Dir); err != nil {
		return fmt.Errorf("remove working area: %w", err)
	}
	return nil
}

// InputPath is where the downloaded source is written.
func (a Area) InputPath(filename string) string {
	return filepath.Join(a.Dir, SafeName(filename))
}

// OutputDir holds the master playlist, thumbnails and the timeline.
func (a Area) OutputDir() string {
	return filepath.Join(a.Dir, outputDirName)
}

// RenditionDir holds one profile's playlist and segments.
func (a Area) RenditionDir(label string) string {
	return filepath.Join(a.OutputDir(), SafeName(label))
}

// SafeName reduces value to a single path element.
func SafeName(value string) string {
	value = strings.TrimSpace(value)
	value = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, value)
	if value == "" || value == "." || value == ".." {
		return "_"
	}
	return value
}
