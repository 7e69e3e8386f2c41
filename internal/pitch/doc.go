// Package pitch defines the enumerated pitches and note lengths a carillon
// score is written in.
//
// Pitches are plain tags: the sample data for each one lives in the waveform
// package, built once at startup. Durations are fractions of a measure and are
// converted to wall-clock time against the configured measure length.
package pitch
