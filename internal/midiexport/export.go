package midiexport

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"carillon/internal/config"
	"carillon/internal/score"
)

// TicksPerQuarter is the file resolution.
const TicksPerQuarter = 960

// ticksPerMeasure assumes 4/4: one measure is a whole note.
const ticksPerMeasure = 4 * TicksPerQuarter

// Options configures an export.
type Options struct {
	// TempoBPM in quarter notes per minute. Zero derives it from Measure.
	TempoBPM float64
	Velocity uint8
	Channel  uint8
	// Measure is the length of a whole note during playback.
	Measure time.Duration
}

// OptionsFromConfig maps the [midi] and [audio] sections onto export options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		TempoBPM: cfg.MIDI.TempoBPM,
		Velocity: uint8(cfg.MIDI.Velocity),
		Channel:  uint8(cfg.MIDI.Channel),
		Measure:  cfg.Measure(),
	}
}

// Tempo resolves the effective tempo.
func (o Options) Tempo() float64 {
	if o.TempoBPM > 0 {
		return o.TempoBPM
	}
	if o.Measure <= 0 {
		return 120
	}
	return 240 / o.Measure.Seconds()
}

// Ticks converts a note length to file ticks.
func Ticks(fraction float64) uint32 {
	return uint32(math.Round(fraction * ticksPerMeasure))
}

// Build converts s into a single-track SMF. Rests become silence between
// notes rather than events.
func Build(s score.Score, opts Options) (*smf.SMF, error) {
	if opts.Channel > 15 {
		return nil, fmt.Errorf("midiexport: channel %d out of range 0-15", opts.Channel)
	}
	if opts.Velocity == 0 || opts.Velocity > 127 {
		return nil, fmt.Errorf("midiexport: velocity %d out of range 1-127", opts.Velocity)
	}

	file := smf.New()
	file.TimeFormat = smf.MetricTicks(TicksPerQuarter)

	var track smf.Track
	if s.Name != "" {
		track.Add(0, smf.MetaTrackSequenceName(s.Name))
	}
	track.Add(0, smf.MetaMeter(4, 4))
	track.Add(0, smf.MetaTempo(opts.Tempo()))

	var pending uint32
	for i, entry := range s.Entries {
		ticks := Ticks(entry.Duration.Fraction())
		key, ok := entry.Pitch.MIDIKey()
		if !ok {
			pending += ticks
			continue
		}
		if !entry.Duration.Valid() {
			return nil, fmt.Errorf("midiexport: entry %d has invalid duration", i+1)
		}
		track.Add(pending, midi.NoteOn(opts.Channel, key, opts.Velocity))
		track.Add(ticks, midi.NoteOff(opts.Channel, key))
		pending = 0
	}
	track.Close(pending)

	if err := file.Add(track); err != nil {
		return nil, fmt.Errorf("midiexport: add track: %w", err)
	}
	return file, nil
}

// Export writes s to w as a Standard MIDI File.
func Export(w io.Writer, s score.Score, opts Options) (int64, error) {
	file, err := Build(s, opts)
	if err != nil {
		return 0, err
	}
	n, err := file.WriteTo(w)
	if err != nil {
		return n, fmt.Errorf("midiexport: write: %w", err)
	}
	return n, nil
}

// WriteFile exports s to path, creating parent directories.
func WriteFile(path string, s score.Score, opts Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("midiexport: create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("midiexport: create file: %w", err)
	}
	if _, err := Export(f, s, opts); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("midiexport: close file: %w", err)
	}
	return nil
}
