package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pdfwhacker/internal/logging"
)

// DefaultMaxAge is how old a staging file must be before Sweep removes it.
const DefaultMaxAge = time.Hour

// SweepResult contains the outcome of a sweep.
type SweepResult struct {
	Removed []string
	Errors  []SweepError
}

// SweepError pairs a path with its cleanup error.
type SweepError struct {
	Path  string
	Error error
}

// IsStagingFile reports whether name looks like a temporary file written by
// fileutil.ReplaceFile (".<name>.tmp-<random>").
func IsStagingFile(name string) bool {
	return strings.HasPrefix(name, ".") && strings.Contains(name, ".tmp-")
}

// Sweep removes staging files older than maxAge from each directory. They
// are left behind only when a replace was interrupted.
func Sweep(ctx context.Context, dirs []string, maxAge time.Duration, logger *slog.Logger) SweepResult {
	if logger == nil {
		logger = logging.NewNop()
	}
	result := SweepResult{}
	cutoff := time.Now().Add(-maxAge)

	for _, dir := range dirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				result.Errors = append(result.Errors, SweepError{Path: dir, Error: err})
			}
			continue
		}

		for _, entry := range entries {
			if ctx.Err() != nil {
				return result
			}
			if !entry.Type().IsRegular() || !IsStagingFile(entry.Name()) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			info, err := entry.Info()
			if err != nil {
				result.Errors = append(result.Errors, SweepError{Path: path, Error: err})
				continue
			}
			if !info.ModTime().Before(cutoff) {
				continue
			}
			if err := os.Remove(path); err != nil {
				result.Errors = append(result.Errors, SweepError{Path: path, Error: err})
				logging.WarnWithContext(logger, "failed to remove stale staging file", "staging_cleanup_failed",
					logging.String("path", path),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check folder permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
				continue
			}
			result.Removed = append(result.Removed, path)
			logger.Info("removed stale staging file",
				logging.String("path", path),
				logging.Duration("age", time.Since(info.ModTime())),
				logging.String(logging.FieldEventType, "staging_cleanup"),
			)
		}
	}
	return result
}
