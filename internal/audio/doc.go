// Package audio provides the sinks a performance writes samples to.
//
// Every sink accepts signed 8-bit mono samples through Write, flushes with
// Drain after the last note, and releases its resources with Close. Bells
// take turns writing, so sinks never see concurrent Write calls and carry
// no locking on the sample path beyond lifecycle bookkeeping.
//
// The speaker sink uses oto and needs cgo plus ALSA on Linux. Build with
// -tags headless to replace it with a stub that reports the backend as
// unavailable.
package audio
