package logging_test

import (
	"os"
	"testing"
	"time"
)

func mustAge(t *testing.T, path string, days int) {
	t.Helper()
	when := time.Now().AddDate(0, 0, -days)
	if err := os.Chtimes(path, when, when); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}
