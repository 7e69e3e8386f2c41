// Package bell implements the per-pitch worker that rings one note at a time.
//
// Each Bell owns a goroutine parked on a sync.Cond. The conductor hands it a
// turn with GiveTurn, the bell writes its pitch's samples to the shared sink,
// and GiveTurn returns once the write has finished. Only one turn is ever in
// flight across the whole ensemble, so the sink never sees concurrent writes.
//
// Broken invariants (a second turn while one is pending, a turn after Stop,
// a second Stop) panic with a *ProtocolError; they are programming errors in
// the caller, not runtime conditions.
package bell
