package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"carillon/internal/history"
	"carillon/internal/performance"
)

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var backend string
	var wavPath string
	var dryRun bool
	var progress bool

	cmd := &cobra.Command{
		Use:   "play <score>",
		Short: "Play a score through the configured audio backend",
		Long: `Play a score through the configured audio backend.

Each distinct pitch gets its own bell; notes are handed out one at a time in
score order. Ctrl-C stops the performance at the next note boundary.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts := performance.Options{
				ScorePath: args[0],
				Backend:   backend,
				WAVPath:   wavPath,
				DryRun:    dryRun,
				Logger:    logger,
			}
			errOut := cmd.ErrOrStderr()
			if progress {
				opts.OnNote = progressPrinter(errOut)
			}

			result, err := performance.Run(runCtx, cfg, opts)
			if progress && result != nil {
				fmt.Fprintln(errOut)
			}
			if result != nil {
				printPlaySummary(cmd.OutOrStdout(), result)
			}
			if err != nil && errors.Is(err, context.Canceled) && cmd.Context().Err() == nil {
				return fmt.Errorf("performance interrupted after %d notes", result.NotesPlayed)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&backend, "backend", "", "Audio backend override (oto, wav, null)")
	cmd.Flags().StringVar(&wavPath, "wav", "", "Render to this WAV file instead of the speakers")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Run the full pipeline against the null backend")
	cmd.Flags().BoolVar(&progress, "progress", false, "Print a note counter to stderr while playing")
	return cmd
}

func progressPrinter(w io.Writer) func(played, total int) {
	return func(played, total int) {
		fmt.Fprintf(w, "\r%d/%d notes", played, total)
	}
}

func printPlaySummary(out io.Writer, result *performance.Result) {
	fmt.Fprintf(out, "Score:    %s (%d notes)\n", result.Score.Name, result.Score.Len())
	fmt.Fprintf(out, "Backend:  %s\n", result.Backend)
	if result.Output != "" {
		fmt.Fprintf(out, "Output:   %s\n", result.Output)
	}
	if result.Status == "" {
		return
	}
	fmt.Fprintf(out, "Status:   %s (%d/%d notes in %s)\n",
		result.Status, result.NotesPlayed, result.Score.Len(), result.Elapsed.Round(time.Millisecond))
	if result.DevicesRemoved > 0 {
		fmt.Fprintf(out, "Warning:  %d sound device(s) disappeared during playback\n", result.DevicesRemoved)
	}
	if result.Status != history.StatusCompleted && result.LogPath != "" {
		fmt.Fprintf(out, "Log:      %s\n", result.LogPath)
	}
	fmt.Fprintf(out, "Run ID:   %s\n", result.RunID)
}
