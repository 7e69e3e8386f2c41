package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"carillon/internal/config"
	"carillon/internal/history"
	"carillon/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var raw bool

	cmd := &cobra.Command{
		Use:   "logs [run-id]",
		Short: "Show the log of a performance (the latest by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := resolveRunLog(cmd, ctx, cfg, args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			emit := func(line string) {
				if !raw {
					line = logs.Format(line)
				}
				fmt.Fprintln(out, line)
			}

			if follow {
				runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return logs.Follow(runCtx, path, lines, emit)
			}
			result, err := logs.Tail(cmd.Context(), path, logs.TailOptions{Offset: -1, Limit: lines})
			if err != nil {
				return err
			}
			for _, line := range result.Lines {
				emit(line)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the JSON records unchanged")
	return cmd
}

// resolveRunLog maps a run id (or unique prefix) to its log file. Without
// an id the newest run log wins.
func resolveRunLog(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, args []string) (string, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return logs.Latest(cfg.Paths.LogDir)
	}
	id := strings.TrimSpace(args[0])
	if _, err := os.Stat(logs.RunLogPath(cfg.Paths.LogDir, id)); err == nil {
		return logs.RunLogPath(cfg.Paths.LogDir, id), nil
	}
	if !cfg.History.Enabled {
		return "", fmt.Errorf("no log for run %q", id)
	}
	var path string
	err := ctx.withStore(func(_ *config.Config, store *history.Store) error {
		run, err := findRun(cmd, store, id)
		if err != nil {
			return err
		}
		path = run.LogPath
		if path == "" {
			path = logs.RunLogPath(cfg.Paths.LogDir, run.ID)
		}
		return nil
	})
	return path, err
}
