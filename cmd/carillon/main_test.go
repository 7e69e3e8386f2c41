package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	stateDir   string
	logDir     string
	exportDir  string
	scorePath  string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	home := filepath.Join(base, "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	t.Setenv("CARILLON_AUDIO_BACKEND", "")

	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "carillon.toml"),
		stateDir:   filepath.Join(base, "state"),
		logDir:     filepath.Join(base, "logs"),
		exportDir:  filepath.Join(base, "exports"),
	}
	writeTestConfig(t, env)
	env.scorePath = writeTestScore(t, base, "trio.txt", "C4 QUARTER", "REST EIGHTH", "E4, HALF")
	return env
}

func writeTestConfig(t *testing.T, env *cliTestEnv) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
state_dir = %q
log_dir = %q
export_dir = %q

[audio]
backend = "null"
sample_rate = 8000
measure_seconds = 0.2
note_gap_samples = 0

[logging]
format = "json"
level = "error"

[device]
monitor = false
`, env.stateDir, env.logDir, env.exportDir)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func writeTestScore(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write score: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
