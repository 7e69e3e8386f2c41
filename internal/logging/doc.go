// Package logging assembles structured slog loggers and formatting helpers used
// across carillon.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so conductor and bell code can
// tag records with run IDs, pitches and note positions. A no-op logger is
// provided for tests and for wiring code that cannot fail.
package logging
