// Package conductor drives a score through an ensemble of bells.
//
// Load starts one bell per distinct pitch, Play hands out turns in score
// order and waits for each to finish before the next, and StopAll shuts the
// ensemble down. Exactly one bell writes to the sink at any moment.
package conductor
