package waveform

import (
	"errors"
	"fmt"
	"math"
	"time"

	"carillon/internal/pitch"
)

// MaxVolume is the largest amplitude a signed 8-bit sample can carry.
const MaxVolume = 127

// Options configures table construction.
type Options struct {
	SampleRate int
	Measure    time.Duration
	Volume     int
}

// Table maps every pitch to a fixed-length sample buffer.
type Table struct {
	sampleRate int
	measure    time.Duration
	volume     int
	buffers    [][]byte
}

// New builds the buffers for every pitch. Each buffer holds exactly one
// measure of audio; Rest maps to silence.
func New(opts Options) (*Table, error) {
	if opts.SampleRate <= 0 {
		return nil, errors.New("waveform: sample rate must be positive")
	}
	if opts.Measure < time.Millisecond {
		return nil, errors.New("waveform: measure must be at least one millisecond")
	}
	if opts.Volume == 0 {
		opts.Volume = MaxVolume
	}
	if opts.Volume < 0 || opts.Volume > MaxVolume {
		return nil, fmt.Errorf("waveform: volume %d out of range 1-%d", opts.Volume, MaxVolume)
	}

	length := int(opts.Measure.Milliseconds()) * opts.SampleRate / 1000
	table := &Table{
		sampleRate: opts.SampleRate,
		measure:    opts.Measure,
		volume:     opts.Volume,
		buffers:    make([][]byte, pitch.Count()),
	}
	for _, p := range pitch.All() {
		table.buffers[p] = synthesize(p, length, opts.SampleRate, float64(opts.Volume))
	}
	return table, nil
}

func synthesize(p pitch.Pitch, length, sampleRate int, volume float64) []byte {
	buf := make([]byte, length)
	freq := p.Frequency()
	if freq == 0 {
		return buf
	}
	step := freq * 2 * math.Pi / float64(sampleRate)
	for i := range buf {
		buf[i] = byte(int8(math.Sin(float64(i)*step) * volume))
	}
	return buf
}

// Samples returns the buffer for p. Callers must treat it as read-only.
func (t *Table) Samples(p pitch.Pitch) []byte {
	if !p.Valid() {
		panic(fmt.Sprintf("waveform: no buffer for %v", p))
	}
	return t.buffers[p]
}

// Silence returns n zero samples backed by the Rest buffer when it is long
// enough.
func (t *Table) Silence(n int) []byte {
	rest := t.buffers[pitch.Rest]
	if n <= len(rest) {
		return rest[:n]
	}
	return make([]byte, n)
}

// SampleRate reports the samples per second every buffer was built for.
func (t *Table) SampleRate() int {
	return t.sampleRate
}

// Measure reports the measure length, which is also the longest playable note.
func (t *Table) Measure() time.Duration {
	return t.measure
}

// Len reports the number of samples in each buffer.
func (t *Table) Len() int {
	return len(t.buffers[pitch.Rest])
}

// Volume reports the peak amplitude used during synthesis.
func (t *Table) Volume() int {
	return t.volume
}
