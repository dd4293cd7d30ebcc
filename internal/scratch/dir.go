package scratch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrNotFound   = errors.New("no file matches stem")
	ErrOutsideDir = errors.New("path is outside the scratch directory")
)

// Suffixes yt-dlp uses for files it is still writing
var partialSuffixes = []string{".part", ".ytdl", ".tmp"}

// Dir is the process-wide temporary directory yt-dlp writes into.
// Files are owned by the request that produced them; Sweep reclaims
// anything left behind.
type Dir struct {
	mu   sync.Mutex
	path string
}

// Stats summarizes the directory contents
type Stats struct {
	Files int   `json:"files"`
	Bytes int64 `json:"bytes"`
}

// SweepResult reports what a sweep removed
type SweepResult struct {
	Removed int
	Bytes   int64
}

// NewDir creates a Dir rooted at path. The directory is created lazily by Ensure.
func NewDir(path string) *Dir {
	return &Dir{path: filepath.Clean(path)}
}

// Path returns the directory path
func (d *Dir) Path() string {
	return d.path
}

// Ensure creates the directory if it does not exist
func (d *Dir) Ensure() error {
	if err := os.MkdirAll(d.path, 0755); err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return nil
}

// Find returns the finished file whose name contains stem. In-progress
// yt-dlp partials are ignored. When several files match, the one named
// exactly stem.<ext> wins.
func (d *Dir) Find(stem string) (string, os.FileInfo, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read scratch directory: %w", err)
	}

	var matches []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.Contains(name, stem) || isPartial(name) {
			continue
		}
		matches = append(matches, name)
	}

	if len(matches) == 0 {
		return "", nil, fmt.Errorf("%w: %s", ErrNotFound, stem)
	}

	sort.Strings(matches)
	chosen := matches[0]
	for _, name := range matches {
		if strings.TrimSuffix(name, filepath.Ext(name)) == stem {
			chosen = name
			break
		}
	}

	path := filepath.Join(d.path, chosen)
	info, err := os.Stat(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to stat file: %w", err)
	}

	return path, info, nil
}

// Remove deletes a file inside the directory. A missing file is not an error.
func (d *Dir) Remove(path string) error {
	if filepath.Dir(filepath.Clean(path)) != d.path {
		return fmt.Errorf("%w: %s", ErrOutsideDir, path)
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Sweep removes regular files last modified before now-maxAge
func (d *Dir) Sweep(maxAge time.Duration, now time.Time) (SweepResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var result SweepResult

	entries, err := os.ReadDir(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return result, fmt.Errorf("failed to read scratch directory: %w", err)
	}

	cutoff := now.Add(-maxAge)
	var errs []error
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(d.path, entry.Name())); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
			continue
		}
		result.Removed++
		result.Bytes += info.Size()
	}

	return result, errors.Join(errs...)
}

// Stats counts regular files and their total size
func (d *Dir) Stats() (Stats, error) {
	var stats Stats

	entries, err := os.ReadDir(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, fmt.Errorf("failed to read scratch directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		stats.Files++
		stats.Bytes += info.Size()
	}

	return stats, nil
}

func isPartial(name string) bool {
	for _, suffix := range partialSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	// fragment downloads: name.mp4.part-Frag3
	return strings.Contains(name, ".part-Frag")
}
