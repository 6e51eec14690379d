package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// RunIDLayout formats the timestamp that names each run log.
const RunIDLayout = "20060102T150405.000Z"

// RunLogs describes the per-run log files of one command:
// <Dir>/<Prefix>-<run id>.log, plus a <Prefix>.log pointer at the newest.
type RunLogs struct {
	Dir    string
	Prefix string
}

// NewRunID returns a run id for t.
func NewRunID(t time.Time) string {
	return t.UTC().Format(RunIDLayout)
}

// Path returns the log file for runID.
func (r RunLogs) Path(runID string) string {
	return filepath.Join(r.Dir, fmt.Sprintf("%s-%s.log", r.Prefix, runID))
}

// Pointer returns the stable path that follows the newest run.
func (r RunLogs) Pointer() string {
	return filepath.Join(r.Dir, r.Prefix+".log")
}

// Link repoints Pointer at target, falling back to a hard link where
// symlinks are not allowed.
func (r RunLogs) Link(target string) error {
	if r.Dir == "" || target == "" {
		return nil
	}
	pointer := r.Pointer()
	if err := os.Remove(pointer); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, pointer); err == nil {
		return nil
	}
	if err := os.Link(target, pointer); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

type runLog struct {
	path string
	at   time.Time
}

// runs lists this command's run logs, newest first. Only names whose suffix
// parses as a run id count, so "pdfwhacker" never claims the logs of
// "pdfwhacker-merge".
func (r RunLogs) runs() []runLog {
	entries, err := os.ReadDir(r.Dir)
	if err != nil {
		return nil
	}
	prefix := r.Prefix + "-"
	var logs []runLog
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".log")
		at, err := time.Parse(RunIDLayout, id)
		if err != nil {
			continue
		}
		logs = append(logs, runLog{path: filepath.Join(r.Dir, name), at: at})
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].at.After(logs[j].at) })
	return logs
}

// Prune removes run logs started more than retentionDays ago. The newest
// keep runs and the current run survive regardless of age. A retentionDays
// value of 0 disables pruning. It returns the removed paths.
func (r RunLogs) Prune(logger *slog.Logger, retentionDays, keep int, current string) []string {
	if retentionDays <= 0 || strings.TrimSpace(r.Dir) == "" {
		return nil
	}
	if logger == nil {
		logger = NewNop()
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	var removed []string
	for i, run := range r.runs() {
		if i < keep || run.path == current || !run.at.Before(cutoff) {
			continue
		}
		if err := os.Remove(run.path); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String("path", run.path),
				Error(err),
				String(FieldErrorHint, "check file permissions and paths.log_dir ownership"),
				String(FieldImpact, "old run log remains on disk"),
			)
			continue
		}
		removed = append(removed, run.path)
		logger.Info("run log pruned",
			String("path", run.path),
			String(FieldEventType, "log_pruned"),
		)
	}
	return removed
}
