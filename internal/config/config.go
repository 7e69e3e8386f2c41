package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
	ExportDir string `toml:"export_dir"`
}

// Audio contains configuration for waveform synthesis and sound output.
type Audio struct {
	// Backend selects the sink: "oto" (speakers), "wav" (file) or "null".
	Backend string `toml:"backend"`
	// SampleRate is shared by the waveform table and the sink.
	SampleRate int `toml:"sample_rate"`
	// MeasureSeconds is the length of a whole note and of every waveform
	// buffer. Notes never play longer than one measure.
	MeasureSeconds float64 `toml:"measure_seconds"`
	// Volume is the peak amplitude of a signed 8-bit sample (1-127).
	Volume int `toml:"volume"`
	// NoteGapSamples of silence are written after every note so repeated
	// pitches stay distinct. 0 disables the gap.
	NoteGapSamples int    `toml:"note_gap_samples"`
	WAVPath        string `toml:"wav_path"`
	BufferMillis   int    `toml:"buffer_millis"`
}

// MIDI contains configuration for Standard MIDI File export.
type MIDI struct {
	// TempoBPM of 0 derives the tempo from the measure length (4/4 time).
	TempoBPM float64 `toml:"tempo_bpm"`
	Velocity int     `toml:"velocity"`
	Channel  int     `toml:"channel"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// History contains configuration for the performance history database.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Device contains configuration for audio device supervision.
type Device struct {
	// Monitor watches udev sound events during a performance and logs
	// devices that disappear.
	Monitor bool `toml:"monitor"`
}

// Config encapsulates all configuration values for carillon.
//
// Configuration sections by subsystem:
//   - Paths: state, log and export directories
//   - Audio: sample format, measure length, output backend
//   - MIDI: Standard MIDI File export settings
//   - Logging: log format, level, and retention
//   - History: SQLite performance history
//   - Device: udev sound device monitor
type Config struct {
	Paths   Paths   `toml:"paths"`
	Audio   Audio   `toml:"audio"`
	MIDI    MIDI    `toml:"midi"`
	Logging Logging `toml:"logging"`
	History History `toml:"history"`
	Device  Device  `toml:"device"`
}

// Load reads the configuration at path, or at the first existing default
// location when path is empty, on top of Default(). It returns the config
// with paths expanded, the file it considered, and whether that file
// existed. A missing file is not an error.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	source, exists, err := locate(path)
	if err != nil {
		return nil, "", false, err
	}
	if exists {
		if err := decodeFile(source, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, source, exists, nil
}

// decodeFile rejects unknown keys so typos surface instead of silently
// falling back to defaults.
func decodeFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("config %s: %s", path, strings.TrimSpace(strict.String()))
		}
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Measure returns the configured measure length.
func (c *Config) Measure() time.Duration {
	return time.Duration(c.Audio.MeasureSeconds * float64(time.Second))
}

// LockPath is the file held while a performance owns the audio output.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "carillon.lock")
}

// HistoryPath is the SQLite database that records performances.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// CreateSample writes the commented sample configuration to path, creating
// parent directories as needed.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
