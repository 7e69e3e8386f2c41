package preflight

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"carillon/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	switch cfg.Audio.Backend {
	case config.BackendOto:
		results = append(results, CheckSoundDevices(ctx, DefaultSoundDir))
	case config.BackendWAV:
		target := cfg.Audio.WAVPath
		if target == "" {
			target = filepath.Join(cfg.Paths.ExportDir, "carillon.wav")
		}
		results = append(results, CheckWritableTarget("WAV output", target))
	}

	return results
}

// Failed returns only the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// Err joins every failed result into one error, or returns nil.
func Err(results []Result) error {
	var errs []error
	for _, r := range Failed(results) {
		errs = append(errs, fmt.Errorf("%s: %s", r.Name, r.Detail))
	}
	return errors.Join(errs...)
}
