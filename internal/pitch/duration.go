package pitch

import (
	"fmt"
	"strings"
	"time"
)

// Duration is an enumerated note length expressed as a fraction of a measure.
type Duration uint8

const (
	Whole Duration = iota
	Half
	Quarter
	Triplet
	Eighth
	Sixteenth

	durationCount
)

var durationSpecs = [durationCount]struct {
	name     string
	fraction float64
}{
	Whole:     {"WHOLE", 1.0},
	Half:      {"HALF", 0.5},
	Quarter:   {"QUARTER", 0.25},
	Triplet:   {"TRIPLET", 0.1667},
	Eighth:    {"EIGHTH", 0.125},
	Sixteenth: {"SIXTEENTH", 0.0625},
}

// Durations returns every note length from longest to shortest.
func Durations() []Duration {
	out := make([]Duration, 0, durationCount)
	for d := Whole; d < durationCount; d++ {
		out = append(out, d)
	}
	return out
}

// ParseDuration resolves a note length name such as "QUARTER" or "eighth".
func ParseDuration(name string) (Duration, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(name))
	if trimmed == "" {
		return Whole, fmt.Errorf("duration: empty name")
	}
	for d, spec := range durationSpecs {
		if spec.name == trimmed {
			return Duration(d), nil
		}
	}
	return Whole, fmt.Errorf("duration: unknown name %q", name)
}

// Valid reports whether d is a member of the enumeration.
func (d Duration) Valid() bool {
	return d < durationCount
}

func (d Duration) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Duration(%d)", uint8(d))
	}
	return durationSpecs[d].name
}

// Fraction returns the share of one measure this length occupies.
func (d Duration) Fraction() float64 {
	if !d.Valid() {
		return 0
	}
	return durationSpecs[d].fraction
}

// Millis converts the note length to whole milliseconds against the given
// measure length. Fractions are truncated, never rounded up.
func (d Duration) Millis(measure time.Duration) int {
	return int(d.Fraction() * float64(measure.Milliseconds()))
}

// Within returns the playback time of d for the given measure length.
func (d Duration) Within(measure time.Duration) time.Duration {
	return time.Duration(d.Millis(measure)) * time.Millisecond
}
