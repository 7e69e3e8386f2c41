// Package waveform precomputes the sample buffer each bell plays from.
//
// A Table is built once at startup for a fixed sample rate and measure
// length; afterwards it is read-only and safe to share between every bell
// goroutine without locking. Samples are signed 8-bit mono, matching the
// format the audio sinks expect.
package waveform
