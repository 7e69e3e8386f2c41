//go:build !headless

package audio

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// oto allows one context per process, so every OtoSink shares it.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoRate int
	otoErr  error
)

func otoContext(sampleRate int, buffer time.Duration) (*oto.Context, error) {
	otoOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 1,
			Format:       oto.FormatUnsignedInt8,
			BufferSize:   buffer,
		})
		if err != nil {
			otoErr = fmt.Errorf("audio: open oto context: %w", err)
			return
		}
		<-ready
		otoCtx = ctx
		otoRate = sampleRate
	})
	if otoErr != nil {
		return nil, otoErr
	}
	if otoRate != sampleRate {
		return nil, fmt.Errorf("audio: oto context already running at %d Hz, cannot open %d Hz", otoRate, sampleRate)
	}
	return otoCtx, nil
}

// OtoSink plays samples through the default output device. Writes are fed
// to the player through a pipe, so Write blocks until the device has pulled
// the samples.
type OtoSink struct {
	player *oto.Player
	pr     *io.PipeReader
	pw     *io.PipeWriter

	mu      sync.Mutex
	scratch []byte
	drained bool
	closed  bool
}

// NewOtoSink opens the output device and starts an idle player.
func NewOtoSink(sampleRate int, buffer time.Duration) (*OtoSink, error) {
	ctx, err := otoContext(sampleRate, buffer)
	if err != nil {
		return nil, err
	}
	pr, pw := io.Pipe()
	player := ctx.NewPlayer(pr)
	player.Play()
	return &OtoSink{player: player, pr: pr, pw: pw}, nil
}

func (s *OtoSink) Write(buf []byte, offset, length int) error {
	if err := checkBounds(buf, offset, length); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drained || s.closed {
		return ErrClosed
	}
	s.scratch = toUnsigned(s.scratch, buf[offset:offset+length])
	if _, err := s.pw.Write(s.scratch); err != nil {
		return fmt.Errorf("audio: write to device: %w", err)
	}
	if err := s.player.Err(); err != nil {
		return fmt.Errorf("audio: device error: %w", err)
	}
	return nil
}

// Drain closes the feed and waits until the player has emptied its buffer.
func (s *OtoSink) Drain() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drainLocked()
}

func (s *OtoSink) drainLocked() error {
	if s.drained || s.closed {
		return nil
	}
	s.drained = true
	if err := s.pw.Close(); err != nil {
		return fmt.Errorf("audio: close device feed: %w", err)
	}
	for s.player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
	return s.player.Err()
}

// Close drains and releases the player. The shared context stays open.
func (s *OtoSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	drainErr := s.drainLocked()
	s.closed = true
	closeErr := s.player.Close()
	_ = s.pr.Close()
	if drainErr != nil {
		return drainErr
	}
	return closeErr
}
