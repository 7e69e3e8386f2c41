package bell

import (
	"errors"
	"fmt"

	"carillon/internal/pitch"
)

// ErrProtocolViolation marks a broken turn-passing invariant. It is never
// returned: a violation means the caller is wrong, so it panics with a
// *ProtocolError that wraps this sentinel.
var ErrProtocolViolation = errors.New("bell protocol violation")

// ProtocolError describes which invariant a caller broke.
type ProtocolError struct {
	Pitch  pitch.Pitch
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: bell %s: %s", ErrProtocolViolation, e.Pitch, e.Reason)
}

func (e *ProtocolError) Unwrap() error {
	return ErrProtocolViolation
}

func violate(p pitch.Pitch, reason string) {
	panic(&ProtocolError{Pitch: p, Reason: reason})
}

// State is the lifecycle position of a bell.
type State int

const (
	// StateIdle means the bell is parked waiting for a turn.
	StateIdle State = iota
	// StateRinging means a turn is pending and the bell is writing samples.
	StateRinging
	// StateStopping means Stop was called but the goroutine has not exited.
	StateStopping
	// StateTerminated means the goroutine has exited.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRinging:
		return "ringing"
	case StateStopping:
		return "stopping"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
