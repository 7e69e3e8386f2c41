// Package history records every performance in a SQLite database under the
// state directory: which score was played, on which backend, how far it got
// and how it ended.
package history
