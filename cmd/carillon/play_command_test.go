package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"carillon/internal/audio"
)

func TestPlayDryRun(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"play", "--dry-run", env.scorePath}, env.configPath)
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	requireContains(t, out, "Score:    trio (3 notes)")
	requireContains(t, out, "Backend:  null")
	requireContains(t, out, "Status:   completed (3/3 notes")
}

func TestPlayToWAV(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(env.baseDir, "trio.wav")

	out, _, err := runCLI(t, []string{"play", "--wav", target, env.scorePath}, env.configPath)
	if err != nil {
		t.Fatalf("play --wav: %v", err)
	}
	requireContains(t, out, "Output:   "+target)

	f, err := os.Open(target)
	if err != nil {
		t.Fatalf("open wav: %v", err)
	}
	defer f.Close()
	info, err := audio.ReadWAVInfo(f)
	if err != nil {
		t.Fatalf("ReadWAVInfo: %v", err)
	}
	// 50ms + 25ms + 100ms at 8 kHz.
	if info.DataSize != 400+200+800 {
		t.Fatalf("unexpected data size %d", info.DataSize)
	}
}

func TestPlayRejectsBadScore(t *testing.T) {
	env := setupCLITestEnv(t)
	bad := writeTestScore(t, env.baseDir, "bad.txt", "C4 QUARTER", "Z9 QUARTER")

	out, _, err := runCLI(t, []string{"play", "--dry-run", bad}, env.configPath)
	if err == nil {
		t.Fatal("expected error for invalid score")
	}
	if strings.Contains(out, "Status:") {
		t.Fatalf("nothing should play for an invalid score, got %q", out)
	}
	requireContains(t, err.Error(), "line 2")
}

func TestPlayRejectsUnknownBackend(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"play", "--backend", "cassette", env.scorePath}, env.configPath); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
