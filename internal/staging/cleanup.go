package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"bayloe/internal/logging"
	"bayloe/internal/output"
)

// DefaultMaxAge is how old a session directory must be before a startup
// sweep removes it.
const DefaultMaxAge = 24 * time.Hour

// CleanResult contains the outcome of a sweep.
type CleanResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// DirInfo describes one session directory.
type DirInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
	Files   int
}

// CleanStale removes session directories older than maxAge. Directories
// named in keep are never touched, nor is anything without the session prefix.
func CleanStale(ctx context.Context, stagingDir string, maxAge time.Duration, logger *slog.Logger, keep ...string) CleanResult {
	var result CleanResult
	sessions, err := ListSessions(stagingDir)
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: stagingDir, Error: err})
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, dir := range sessions {
		if ctx.Err() != nil {
			break
		}
		if isKept(dir.Path, keep) || !dir.ModTime.Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(dir.Path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dir.Path, Error: err})
			if logger != nil {
				logging.WarnWithContext(logger, "failed to remove stale session directory", "staging_cleanup_failed",
					logging.String("path", dir.Path),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
			}
			continue
		}
		result.Removed = append(result.Removed, dir.Path)
		if logger != nil {
			logger.Info("removed stale session directory",
				logging.String("path", dir.Path),
				logging.Duration("age", time.Since(dir.ModTime).Round(time.Second)),
				logging.String(logging.FieldEventType, "staging_cleanup"),
			)
		}
	}
	return result
}

// ListSessions returns the session directories under stagingDir, oldest first.
// A missing staging directory yields no entries.
func ListSessions(stagingDir string) ([]DirInfo, error) {
	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), output.SessionPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		dirPath := filepath.Join(stagingDir, entry.Name())
		size, files := dirSize(dirPath)
		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    dirPath,
			ModTime: info.ModTime(),
			Size:    size,
			Files:   files,
		})
	}
	// Session names are random, so order by age instead.
	slices.SortFunc(dirs, func(a, b DirInfo) int { return a.ModTime.Compare(b.ModTime) })
	return dirs, nil
}

func isKept(path string, keep []string) bool {
	for _, k := range keep {
		if k != "" && filepath.Clean(k) == filepath.Clean(path) {
			return true
		}
	}
	return false
}

// dirSize is best effort; unreadable entries are skipped.
func dirSize(path string) (int64, int) {
	var size int64
	var files int
	_ = filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			size += info.Size()
			files++
		}
		return nil
	})
	return size, files
}
