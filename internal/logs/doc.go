// Package logs reads the per-run JSON log files a performance leaves behind.
//
// Tail returns the last lines of a file with bounded memory and can wait
// for new lines while a run is still writing; Follow loops on Tail until
// the context ends. Format turns one JSON record into a single readable
// line for the terminal. RunLogPath and Latest locate the files by run id.
package logs
