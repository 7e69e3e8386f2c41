package testsupport

import (
	"path/filepath"
	"testing"

	"carillon/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Audio goes to the null backend and the device monitor is off so tests
// never touch real hardware.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.ExportDir = filepath.Join(base, "exports")
	cfgVal.Audio.Backend = config.BackendNull
	cfgVal.Device.Monitor = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithBackend selects the audio backend on the test config.
func WithBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Audio.Backend = backend
		if backend == config.BackendWAV && b.cfg.Audio.WAVPath == "" {
			b.cfg.Audio.WAVPath = filepath.Join(b.baseDir, "out.wav")
		}
	}
}

// WithFastAudio shrinks the sample rate and measure so performances finish
// quickly.
func WithFastAudio() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Audio.SampleRate = 8000
		b.cfg.Audio.MeasureSeconds = 0.2
		b.cfg.Audio.NoteGapSamples = 0
	}
}

// WithHistory toggles the performance history database.
func WithHistory(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = enabled
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
