package config

import (
	"errors"
	"fmt"
	"time"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateMIDI(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAudio() error {
	switch c.Audio.Backend {
	case BackendOto, BackendWAV, BackendNull:
	default:
		return fmt.Errorf("audio.backend: unsupported value %q (want oto, wav or null)", c.Audio.Backend)
	}
	if c.Audio.SampleRate < 1000 || c.Audio.SampleRate > 192000 {
		return errors.New("audio.sample_rate must be between 1000 and 192000")
	}
	if c.Measure() < 100*time.Millisecond {
		return errors.New("audio.measure_seconds must be at least 0.1")
	}
	if c.Measure() > time.Minute {
		return errors.New("audio.measure_seconds must not exceed 60")
	}
	if c.Audio.Volume < 1 || c.Audio.Volume > 127 {
		return errors.New("audio.volume must be between 1 and 127")
	}
	if c.Audio.NoteGapSamples < 0 {
		return errors.New("audio.note_gap_samples must not be negative")
	}
	if c.Audio.BufferMillis <= 0 {
		return errors.New("audio.buffer_millis must be positive")
	}
	return nil
}

func (c *Config) validateMIDI() error {
	if c.MIDI.TempoBPM < 0 {
		return errors.New("midi.tempo_bpm must not be negative")
	}
	if c.MIDI.Velocity < 1 || c.MIDI.Velocity > 127 {
		return errors.New("midi.velocity must be between 1 and 127")
	}
	if c.MIDI.Channel < 0 || c.MIDI.Channel > 15 {
		return errors.New("midi.channel must be between 0 and 15")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}
