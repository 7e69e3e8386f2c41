//go:build headless

package audio

import (
	"fmt"
	"time"
)

// OtoSink is unavailable in headless builds.
type OtoSink struct{}

// NewOtoSink always fails in headless builds.
func NewOtoSink(int, time.Duration) (*OtoSink, error) {
	return nil, fmt.Errorf("%w: oto (built with -tags headless)", ErrBackendUnavailable)
}

func (*OtoSink) Write([]byte, int, int) error { return ErrBackendUnavailable }
func (*OtoSink) Drain() error                 { return ErrBackendUnavailable }
func (*OtoSink) Close() error                 { return nil }
