// Package midiexport renders a score as a Standard MIDI File so it can be
// opened in a sequencer or notation program.
package midiexport
