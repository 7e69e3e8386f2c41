// Package score reads carillon score files into ordered (pitch, duration)
// entries.
//
// Parsing and validation happen entirely here, before any bell is started:
// the conductor only ever receives entries whose pitch and duration are known
// members of their enumerations.
package score
