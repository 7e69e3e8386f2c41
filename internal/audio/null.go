package audio

import "sync/atomic"

// NullSink discards samples. It backs dry runs and tests.
type NullSink struct {
	samples atomic.Int64
	writes  atomic.Int64
	closed  atomic.Bool
}

// NewNullSink returns an open sink that drops everything.
func NewNullSink() *NullSink {
	return &NullSink{}
}

func (s *NullSink) Write(buf []byte, offset, length int) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := checkBounds(buf, offset, length); err != nil {
		return err
	}
	s.writes.Add(1)
	s.samples.Add(int64(length))
	return nil
}

func (s *NullSink) Drain() error {
	s.closed.Store(true)
	return nil
}

func (s *NullSink) Close() error {
	s.closed.Store(true)
	return nil
}

// Samples reports how many samples have been written.
func (s *NullSink) Samples() int64 { return s.samples.Load() }

// Writes reports how many Write calls succeeded.
func (s *NullSink) Writes() int64 { return s.writes.Load() }
