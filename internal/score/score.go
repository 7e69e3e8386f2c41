package score

import (
	"time"

	"carillon/internal/pitch"
)

// Entry is one note of a score.
type Entry struct {
	Pitch    pitch.Pitch
	Duration pitch.Duration
}

// Score is an ordered sequence of entries. Order is playback order.
type Score struct {
	Name    string
	Entries []Entry
}

// Len reports the number of entries.
func (s Score) Len() int {
	return len(s.Entries)
}

// Pitches returns the distinct pitches the score references, in order of
// first appearance. Rest is included when the score uses it.
func (s Score) Pitches() []pitch.Pitch {
	seen := make(map[pitch.Pitch]struct{}, pitch.Count())
	out := make([]pitch.Pitch, 0, pitch.Count())
	for _, entry := range s.Entries {
		if _, ok := seen[entry.Pitch]; ok {
			continue
		}
		seen[entry.Pitch] = struct{}{}
		out = append(out, entry.Pitch)
	}
	return out
}

// TurnCounts reports how many entries each pitch owns.
func (s Score) TurnCounts() map[pitch.Pitch]int {
	counts := make(map[pitch.Pitch]int, pitch.Count())
	for _, entry := range s.Entries {
		counts[entry.Pitch]++
	}
	return counts
}

// Length sums the playback time of every entry for the given measure.
func (s Score) Length(measure time.Duration) time.Duration {
	var total time.Duration
	for _, entry := range s.Entries {
		total += entry.Duration.Within(measure)
	}
	return total
}
