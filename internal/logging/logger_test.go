package logging_test

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"carillon/internal/config"
	"carillon/internal/logging"
)

func TestNewFromConfigConsole(t *testing.T) {
	cfg := config.Default()
	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger instance")
	}
	logger.Debug("debug message")
}

func TestConsoleLoggerFormatsNoteSubject(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger = logging.NewComponentLogger(logger, "conductor")
	logger.Info("note rung",
		logging.Int(logging.FieldNoteIndex, 3),
		logging.String(logging.FieldPitch, "E4"),
		logging.String(logging.FieldEventType, "note_rung"),
		logging.Int("samples", 24576),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(content)
	if !strings.Contains(out, "INFO [conductor] Note #3 (E4) – note rung") {
		t.Fatalf("unexpected header: %q", out)
	}
	if !strings.Contains(out, "    - samples: 24576") {
		t.Fatalf("expected samples bullet, got %q", out)
	}
	if strings.Contains(out, "event_type") {
		t.Fatalf("expected event_type hidden at info level, got %q", out)
	}
	if strings.Contains(out, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", out)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "debug",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("bell parked", logging.String(logging.FieldEventType, "bell_parked"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
	if !strings.Contains(string(content), "event_type: bell_parked") {
		t.Fatalf("expected event_type in debug logs, got %q", content)
	}
}

func TestJSONLoggerWritesRunID(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "run.json")
	logger, err := logging.New(logging.Options{
		Format:      "json",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := logging.WithRunID(context.Background(), "run-42")
	logging.WithContext(ctx, logger).Info("performance started")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(content)
	for _, want := range []string{`"run_id":"run-42"`, `"msg":"performance started"`, `"level":"info"`, `"ts":`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %q", want, out)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestRunIDFromContext(t *testing.T) {
	if _, ok := logging.RunIDFromContext(context.Background()); ok {
		t.Fatal("expected no run id on empty context")
	}
	ctx := logging.WithRunID(context.Background(), "  abc  ")
	if id, ok := logging.RunIDFromContext(ctx); !ok || id != "abc" {
		t.Fatalf("expected trimmed run id, got %q (%v)", id, ok)
	}
}

func TestCleanupOldLogsRemovesExpiredRunLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "carillon-old.log")
	fresh := filepath.Join(dir, "carillon-new.log")
	other := filepath.Join(dir, "history.db")
	for _, path := range []string{old, fresh, other} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	mustAge(t, old, 40)
	mustAge(t, other, 40)

	logging.CleanupOldLogs(logging.NewNop(), 30, logging.RetentionTarget{Dir: dir, Pattern: "carillon-*.log"})

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected %s removed, stat err %v", old, err)
	}
	for _, keep := range []string{fresh, other} {
		if _, err := os.Stat(keep); err != nil {
			t.Fatalf("expected %s kept: %v", keep, err)
		}
	}
}

func TestCleanupOldLogsKeepsNewestAndExcluded(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 4; i++ {
		path := filepath.Join(dir, "carillon-"+strconv.Itoa(i)+".log")
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		mustAge(t, path, 40+i)
		paths = append(paths, path)
	}

	removed := logging.CleanupOldLogs(nil, 30, logging.RetentionTarget{
		Dir:     dir,
		Pattern: "carillon-*.log",
		Exclude: []string{paths[3]},
		Keep:    1,
	})
	if removed != 2 {
		t.Fatalf("removed %d files, want 2", removed)
	}
	for i, path := range paths {
		_, err := os.Stat(path)
		kept := err == nil
		if wantKept := i == 0 || i == 3; kept != wantKept {
			t.Fatalf("%s kept=%v, want %v", path, kept, wantKept)
		}
	}
}

func TestCleanupOldLogsDisabled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "carillon-old.log")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	mustAge(t, path, 400)
	if n := logging.CleanupOldLogs(nil, 0, logging.RetentionTarget{Dir: dir}); n != 0 {
		t.Fatalf("expected pruning disabled, removed %d", n)
	}
}
