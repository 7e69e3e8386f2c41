package testsupport

import (
	"bytes"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"carillon/internal/pitch"
	"carillon/internal/waveform"
)

// ErrSinkFailed is returned by a RecordingSink once its failure budget is spent.
var ErrSinkFailed = errors.New("recording sink: injected failure")

// RecordingSink captures a copy of every write and counts writes that
// overlapped another one in time.
type RecordingSink struct {
	// Delay is slept inside every write to widen the overlap window.
	Delay time.Duration
	// FailAfter makes every write after the first FailAfter return
	// ErrSinkFailed. Zero disables injection.
	FailAfter int

	inFlight atomic.Int32
	overlaps atomic.Int32

	mu      sync.Mutex
	writes  [][]byte
	drained int
	closed  int
}

// Write records buf[offset:offset+length].
func (s *RecordingSink) Write(buf []byte, offset, length int) error {
	if s.inFlight.Add(1) > 1 {
		s.overlaps.Add(1)
	}
	defer s.inFlight.Add(-1)

	if s.Delay > 0 {
		time.Sleep(s.Delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAfter > 0 && len(s.writes) >= s.FailAfter {
		return ErrSinkFailed
	}
	s.writes = append(s.writes, bytes.Clone(buf[offset:offset+length]))
	return nil
}

// Drain counts drain calls.
func (s *RecordingSink) Drain() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drained++
	return nil
}

// Close counts close calls.
func (s *RecordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

// Writes returns the recorded writes in arrival order.
func (s *RecordingSink) Writes() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.writes...)
}

// Lengths returns the length of each recorded write.
func (s *RecordingSink) Lengths() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.writes))
	for i, w := range s.writes {
		out[i] = len(w)
	}
	return out
}

// Overlaps reports how many writes began while another was in progress.
func (s *RecordingSink) Overlaps() int {
	return int(s.overlaps.Load())
}

// Drained reports how many times Drain was called.
func (s *RecordingSink) Drained() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drained
}

// Closed reports how many times Close was called.
func (s *RecordingSink) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Pitches maps each recorded write back to the pitch whose buffer it is a
// prefix of. All-zero writes map to pitch.Rest.
func (s *RecordingSink) Pitches(table *waveform.Table) []pitch.Pitch {
	writes := s.Writes()
	out := make([]pitch.Pitch, 0, len(writes))
	for _, w := range writes {
		out = append(out, Identify(table, w))
	}
	return out
}

// Identify returns the first pitch whose buffer starts with data. It returns
// pitch.Count() as an invalid marker when nothing matches.
func Identify(table *waveform.Table, data []byte) pitch.Pitch {
	for _, p := range pitch.All() {
		samples := table.Samples(p)
		if len(data) <= len(samples) && bytes.Equal(samples[:len(data)], data) {
			return p
		}
	}
	return pitch.Pitch(pitch.Count())
}
