package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"carillon/internal/config"
	"carillon/internal/logging"
)

var (
	// ErrClosed is returned by writes to a drained or closed sink.
	ErrClosed = errors.New("audio: sink closed")
	// ErrBounds is returned when offset and length fall outside the buffer.
	ErrBounds = errors.New("audio: write out of bounds")
	// ErrBackendUnavailable is returned when a backend is not compiled in.
	ErrBackendUnavailable = errors.New("audio: backend unavailable")
)

// Sink accepts signed 8-bit mono samples.
type Sink interface {
	// Write blocks until buf[offset:offset+length] has been accepted.
	Write(buf []byte, offset, length int) error
	// Drain blocks until everything written has been played or persisted.
	// No writes are accepted afterwards.
	Drain() error
	Close() error
}

// Options selects and configures a sink.
type Options struct {
	Backend    string
	SampleRate int
	// WAVPath is the output file for the wav backend.
	WAVPath string
	// Buffer is the device buffer length for the oto backend.
	Buffer time.Duration
	Logger *slog.Logger
}

// OptionsFromConfig maps the [audio] section onto sink options. An empty
// wav_path falls back to carillon.wav in the export directory.
func OptionsFromConfig(cfg *config.Config) Options {
	wavPath := cfg.Audio.WAVPath
	if wavPath == "" {
		wavPath = filepath.Join(cfg.Paths.ExportDir, "carillon.wav")
	}
	return Options{
		Backend:    cfg.Audio.Backend,
		SampleRate: cfg.Audio.SampleRate,
		WAVPath:    wavPath,
		Buffer:     time.Duration(cfg.Audio.BufferMillis) * time.Millisecond,
	}
}

// Open constructs the sink named by opts.Backend.
func Open(opts Options) (Sink, error) {
	if opts.SampleRate <= 0 {
		return nil, fmt.Errorf("audio: sample rate must be positive, got %d", opts.SampleRate)
	}
	logger := logging.NewComponentLogger(opts.Logger, "audio")

	var (
		sink Sink
		err  error
	)
	switch opts.Backend {
	case config.BackendOto:
		sink, err = NewOtoSink(opts.SampleRate, opts.Buffer)
	case config.BackendWAV:
		sink, err = NewWAVSink(opts.WAVPath, opts.SampleRate)
	case config.BackendNull:
		sink = NewNullSink()
	default:
		return nil, fmt.Errorf("audio: unknown backend %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("sink opened",
		logging.String(logging.FieldEventType, "sink_opened"),
		logging.String("backend", opts.Backend),
		logging.Int("sample_rate", opts.SampleRate),
	)
	return sink, nil
}

func checkBounds(buf []byte, offset, length int) error {
	if offset < 0 || length < 0 || offset > len(buf) || length > len(buf)-offset {
		return fmt.Errorf("%w: offset %d length %d buffer %d", ErrBounds, offset, length, len(buf))
	}
	return nil
}

// toUnsigned converts signed 8-bit samples to the unsigned form WAV and the
// device expect.
func toUnsigned(dst, src []byte) []byte {
	if cap(dst) < len(src) {
		dst = make([]byte, len(src))
	}
	dst = dst[:len(src)]
	for i, s := range src {
		dst[i] = s ^ 0x80
	}
	return dst
}
