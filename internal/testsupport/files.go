package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteScore writes one "PITCH DURATION" line per entry under dir and
// returns the file path.
func WriteScore(t testing.TB, dir, name string, lines ...string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
