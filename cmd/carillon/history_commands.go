package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"carillon/internal/config"
	"carillon/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past performances",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryClearCommand(ctx))
	return historyCmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var statusFlags []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent performances, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatusFilters(statusFlags)
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *history.Store) error {
				runs, err := store.List(cmd.Context(), limit, statuses...)
				if err != nil {
					return err
				}
				if asJSON {
					if runs == nil {
						runs = []*history.Performance{}
					}
					return writeJSON(cmd.OutOrStdout(), runs)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No performances recorded")
					return nil
				}
				fmt.Fprintln(out, renderHistoryTable(runs))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum rows to show (0 for all)")
	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Only show these statuses (playing, completed, failed, cancelled)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one performance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *history.Store) error {
				run, err := findRun(cmd, store, args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), run)
				}
				printRun(cmd.OutOrStdout(), run)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every finished performance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *history.Store) error {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d performance(s)\n", removed)
				return nil
			})
		},
	}
}

func parseStatusFilters(values []string) ([]history.Status, error) {
	statuses := make([]history.Status, 0, len(values))
	for _, v := range values {
		status, ok := history.ParseStatus(v)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", v)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// findRun accepts a full run id or a unique prefix of one.
func findRun(cmd *cobra.Command, store *history.Store, id string) (*history.Performance, error) {
	id = strings.TrimSpace(id)
	run, err := store.Get(cmd.Context(), id)
	if err != nil {
		return nil, err
	}
	if run != nil {
		return run, nil
	}
	runs, err := store.List(cmd.Context(), 0)
	if err != nil {
		return nil, err
	}
	var matches []*history.Performance
	for _, r := range runs {
		if strings.HasPrefix(r.ID, id) {
			matches = append(matches, r)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no performance with id %q", id)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("id prefix %q matches %d performances", id, len(matches))
	}
}

func renderHistoryTable(runs []*history.Performance) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			shortID(r.ID),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.ScoreName,
			r.Backend,
			string(r.Status),
			fmt.Sprintf("%d/%d", r.NotesPlayed, r.NoteCount),
			formatElapsed(r),
		})
	}
	return renderTable(
		[]string{"ID", "Started", "Score", "Backend", "Status", "Notes", "Elapsed"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	)
}

func printRun(out io.Writer, r *history.Performance) {
	fmt.Fprintf(out, "ID:        %s\n", r.ID)
	fmt.Fprintf(out, "Score:     %s\n", r.ScorePath)
	if r.ScoreHash != "" {
		fmt.Fprintf(out, "SHA-256:   %s\n", r.ScoreHash)
	}
	fmt.Fprintf(out, "Backend:   %s\n", r.Backend)
	fmt.Fprintf(out, "Status:    %s\n", r.Status)
	fmt.Fprintf(out, "Notes:     %d/%d\n", r.NotesPlayed, r.NoteCount)
	fmt.Fprintf(out, "Started:   %s\n", r.StartedAt.Local().Format(time.RFC3339))
	if !r.FinishedAt.IsZero() {
		fmt.Fprintf(out, "Finished:  %s (%s)\n", r.FinishedAt.Local().Format(time.RFC3339), formatElapsed(r))
	}
	if r.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:     %s\n", r.ErrorMessage)
	}
	if r.LogPath != "" {
		fmt.Fprintf(out, "Log:       %s\n", r.LogPath)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatElapsed(r *history.Performance) string {
	if r.FinishedAt.IsZero() {
		return "-"
	}
	return strconv.FormatFloat(r.Elapsed().Seconds(), 'f', 1, 64) + "s"
}
