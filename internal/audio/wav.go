package audio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
)

const (
	wavHeaderSize    = 44
	wavFormatPCM     = 1
	wavChannels      = 1
	wavBitsPerSample = 8
)

// WAVSink renders samples into an 8-bit mono PCM WAV file. The RIFF sizes
// are patched when the sink is drained.
type WAVSink struct {
	path       string
	sampleRate int

	mu      sync.Mutex
	file    *os.File
	w       *bufio.Writer
	scratch []byte
	data    int64
	drained bool
	closed  bool
}

// NewWAVSink creates path (and its parent directory) and writes a
// placeholder header.
func NewWAVSink(path string, sampleRate int) (*WAVSink, error) {
	if path == "" {
		return nil, fmt.Errorf("audio: wav backend needs an output path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("audio: create wav directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("audio: create wav file: %w", err)
	}
	s := &WAVSink{
		path:       path,
		sampleRate: sampleRate,
		file:       file,
		w:          bufio.NewWriterSize(file, 64*1024),
	}
	if err := writeWAVHeader(s.w, sampleRate, 0); err != nil {
		file.Close()
		return nil, fmt.Errorf("audio: write wav header: %w", err)
	}
	return s, nil
}

func (s *WAVSink) Write(buf []byte, offset, length int) error {
	if err := checkBounds(buf, offset, length); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drained || s.closed {
		return ErrClosed
	}
	if s.data+int64(length) > math.MaxUint32-wavHeaderSize {
		return fmt.Errorf("audio: wav file %s would exceed 4 GiB", s.path)
	}
	s.scratch = toUnsigned(s.scratch, buf[offset:offset+length])
	if _, err := s.w.Write(s.scratch); err != nil {
		return fmt.Errorf("audio: write wav samples: %w", err)
	}
	s.data += int64(length)
	return nil
}

// Drain flushes buffered samples, rewrites the header with the final sizes
// and syncs the file.
func (s *WAVSink) Drain() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drainLocked()
}

func (s *WAVSink) drainLocked() error {
	if s.drained || s.closed {
		return nil
	}
	s.drained = true
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("audio: flush wav: %w", err)
	}
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("audio: rewind wav: %w", err)
	}
	if err := writeWAVHeader(s.file, s.sampleRate, uint32(s.data)); err != nil {
		return fmt.Errorf("audio: patch wav header: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("audio: sync wav: %w", err)
	}
	return nil
}

// Close drains the sink if needed and closes the file.
func (s *WAVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	drainErr := s.drainLocked()
	s.closed = true
	if err := s.file.Close(); err != nil && drainErr == nil {
		return fmt.Errorf("audio: close wav: %w", err)
	}
	return drainErr
}

// Path reports the output file.
func (s *WAVSink) Path() string { return s.path }

// Samples reports how many samples have been written.
func (s *WAVSink) Samples() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

func writeWAVHeader(w io.Writer, sampleRate int, dataSize uint32) error {
	blockAlign := uint16(wavChannels * wavBitsPerSample / 8)
	fields := []any{
		[4]byte{'R', 'I', 'F', 'F'},
		uint32(36) + dataSize,
		[4]byte{'W', 'A', 'V', 'E'},
		[4]byte{'f', 'm', 't', ' '},
		uint32(16),
		uint16(wavFormatPCM),
		uint16(wavChannels),
		uint32(sampleRate),
		uint32(sampleRate) * uint32(blockAlign),
		blockAlign,
		uint16(wavBitsPerSample),
		[4]byte{'d', 'a', 't', 'a'},
		dataSize,
	}
	for _, field := range fields {
		if err := binary.Write(w, binary.LittleEndian, field); err != nil {
			return err
		}
	}
	return nil
}

// WAVInfo is the subset of a WAV header carillon writes.
type WAVInfo struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	DataSize      int
}

// ReadWAVInfo parses the canonical 44-byte header written by WAVSink.
func ReadWAVInfo(r io.Reader) (WAVInfo, error) {
	var header struct {
		Riff          [4]byte
		RiffSize      uint32
		Wave          [4]byte
		Fmt           [4]byte
		FmtSize       uint32
		Format        uint16
		Channels      uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
		Data          [4]byte
		DataSize      uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return WAVInfo{}, fmt.Errorf("audio: read wav header: %w", err)
	}
	if string(header.Riff[:]) != "RIFF" || string(header.Wave[:]) != "WAVE" || string(header.Data[:]) != "data" {
		return WAVInfo{}, fmt.Errorf("audio: not a canonical wav file")
	}
	if header.Format != wavFormatPCM {
		return WAVInfo{}, fmt.Errorf("audio: unsupported wav format %d", header.Format)
	}
	return WAVInfo{
		SampleRate:    int(header.SampleRate),
		Channels:      int(header.Channels),
		BitsPerSample: int(header.BitsPerSample),
		DataSize:      int(header.DataSize),
	}, nil
}
