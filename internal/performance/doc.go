// Package performance runs one score from file to sound.
//
// Run ties the other packages together: it parses and preflights, takes the
// process-wide audio lock, opens a per-run JSON log next to the console
// logger, records the run in history and hands the score to a conductor
// feeding the configured sink. Every run gets a UUID that appears in the
// log records, the log file name and the history row.
package performance
