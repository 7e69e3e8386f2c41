package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// RetentionTarget names log files to prune: every file in Dir matching
// Pattern, minus Exclude. The newest Keep files survive regardless of age.
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
	Keep    int
}

type logFile struct {
	path    string
	modTime time.Time
}

// CleanupOldLogs deletes target files older than retentionDays and returns
// how many were removed. retentionDays <= 0 disables pruning.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) int {
	if retentionDays <= 0 {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	removed := 0
	for _, target := range targets {
		for _, f := range expiredFiles(target, cutoff) {
			if err := os.Remove(f.path); err != nil {
				WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
					String("path", f.path),
					Error(err),
					String(FieldErrorHint, "check file permissions and log_dir ownership"),
					String(FieldImpact, "old log file remains on disk"),
				)
				continue
			}
			removed++
			if logger != nil {
				logger.Debug("log pruned",
					String("path", f.path),
					String(FieldEventType, "log_pruned"),
				)
			}
		}
	}
	return removed
}

func expiredFiles(target RetentionTarget, cutoff time.Time) []logFile {
	dir := strings.TrimSpace(target.Dir)
	if dir == "" {
		return nil
	}
	pattern := strings.TrimSpace(target.Pattern)
	if pattern == "" {
		pattern = "*"
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil
	}

	excluded := make(map[string]bool, len(target.Exclude))
	for _, path := range target.Exclude {
		excluded[absOrSelf(path)] = true
	}

	files := make([]logFile, 0, len(matches))
	for _, path := range matches {
		info, err := os.Lstat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, logFile{path: absOrSelf(path), modTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].modTime.After(files[j].modTime) })

	var expired []logFile
	for i, f := range files {
		if i < target.Keep || excluded[f.path] || !f.modTime.Before(cutoff) {
			continue
		}
		expired = append(expired, f)
	}
	return expired
}

func absOrSelf(path string) string {
	path = strings.TrimSpace(path)
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
