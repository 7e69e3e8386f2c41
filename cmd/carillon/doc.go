// Package main hosts the carillon CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into score playback,
// validation and inspection, MIDI and WAV export, history queries, preflight
// checks and configuration scaffolding. Configuration is resolved once per
// invocation and shared by every subcommand through commandContext.
//
// Keep this package thin: behaviour belongs in the internal packages and is
// surfaced here through dedicated commands or flags.
package main
