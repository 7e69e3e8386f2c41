package main

import (
	"strings"
	"testing"
)

func TestLogsShowsLatestRun(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"play", "--dry-run", env.scorePath}, env.configPath); err != nil {
		t.Fatalf("play: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "-n", "200"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "run starting")
	requireContains(t, out, "run finished")

	raw, _, err := runCLI(t, []string{"logs", "--raw", "-n", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("logs --raw: %v", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(raw), "{") {
		t.Fatalf("expected a JSON record, got %q", raw)
	}
}

func TestLogsWithoutRuns(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"logs"}, env.configPath); err == nil {
		t.Fatal("expected error when no run logs exist")
	}
}
