package pitch

import (
	"fmt"
	"math"
	"strings"
)

// Pitch identifies one bell. Rest is the silent bell and must stay the zero
// value so the semitone ladder below starts at ordinal 1.
type Pitch uint8

const (
	Rest Pitch = iota
	A4
	A4S
	B4
	C4
	C4S
	D4
	D4S
	E4
	F4
	F4S
	G4
	G4S
	A5
	A5S
	B5
	C5

	pitchCount
)

// ReferenceHz is the frequency of A4, the first sounding pitch.
const ReferenceHz = 440.0

// referenceMIDIKey is the MIDI note number of A4.
const referenceMIDIKey = 69

var pitchNames = [pitchCount]string{
	Rest: "REST",
	A4:   "A4",
	A4S:  "A4S",
	B4:   "B4",
	C4:   "C4",
	C4S:  "C4S",
	D4:   "D4",
	D4S:  "D4S",
	E4:   "E4",
	F4:   "F4",
	F4S:  "F4S",
	G4:   "G4",
	G4S:  "G4S",
	A5:   "A5",
	A5S:  "A5S",
	B5:   "B5",
	C5:   "C5",
}

// All returns every pitch in ordinal order, Rest first.
func All() []Pitch {
	out := make([]Pitch, 0, pitchCount)
	for p := Rest; p < pitchCount; p++ {
		out = append(out, p)
	}
	return out
}

// Count reports how many pitches exist, including Rest.
func Count() int {
	return int(pitchCount)
}

// Parse resolves a pitch name such as "C4", "a4s" or "rest".
func Parse(name string) (Pitch, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(name))
	if trimmed == "" {
		return Rest, fmt.Errorf("pitch: empty name")
	}
	for p, candidate := range pitchNames {
		if candidate == trimmed {
			return Pitch(p), nil
		}
	}
	return Rest, fmt.Errorf("pitch: unknown name %q", name)
}

// Valid reports whether p is a member of the enumeration.
func (p Pitch) Valid() bool {
	return p < pitchCount
}

// IsRest reports whether p is the silent bell.
func (p Pitch) IsRest() bool {
	return p == Rest
}

func (p Pitch) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Pitch(%d)", uint8(p))
	}
	return pitchNames[p]
}

// HalfSteps is the distance in semitones above A4. Rest has no position on
// the ladder and reports -1.
func (p Pitch) HalfSteps() int {
	if p == Rest || !p.Valid() {
		return -1
	}
	return int(p) - 1
}

// Frequency returns the equal-tempered frequency in Hz, or 0 for Rest.
func (p Pitch) Frequency() float64 {
	steps := p.HalfSteps()
	if steps < 0 {
		return 0
	}
	return ReferenceHz * math.Pow(2, float64(steps)/12.0)
}

// MIDIKey returns the MIDI note number for p. The boolean is false for Rest.
func (p Pitch) MIDIKey() (uint8, bool) {
	steps := p.HalfSteps()
	if steps < 0 {
		return 0, false
	}
	return uint8(referenceMIDIKey + steps), true
}
