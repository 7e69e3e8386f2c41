// Package preflight provides readiness checks for the directories and audio
// devices a performance depends on.
//
// These checks run in two contexts:
//   - The performance runner calls RunAll before starting any bell. If a
//     check fails, the run stops before the lock is taken.
//   - The CLI "carillon check" command prints every result.
//
// Each check is gated by the configured backend; the null backend skips
// device checks entirely.
package preflight
