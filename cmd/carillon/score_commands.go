package main

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"carillon/internal/score"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "validate <score>",
		Short:       "Parse a score and report every invalid line",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			s, err := score.Load(args[0])
			if err != nil {
				lineErrs := score.LineErrors(err)
				if len(lineErrs) == 0 {
					return err
				}
				for _, le := range lineErrs {
					fmt.Fprintln(out, le.Error())
				}
				return fmt.Errorf("%s: %d invalid line(s)", args[0], len(lineErrs))
			}
			fmt.Fprintf(out, "%s: %d notes, %d bells\n", s.Name, s.Len(), len(s.Pitches()))
			return nil
		},
	}
}

type inspectEntry struct {
	Index    int     `json:"index"`
	Pitch    string  `json:"pitch"`
	Duration string  `json:"duration"`
	Millis   int     `json:"millis"`
	Hertz    float64 `json:"hertz"`
}

type inspectBell struct {
	Pitch string `json:"pitch"`
	Turns int    `json:"turns"`
}

type inspectReport struct {
	Name    string         `json:"name"`
	Notes   int            `json:"notes"`
	Length  string         `json:"length"`
	Bells   []inspectBell  `json:"bells"`
	Entries []inspectEntry `json:"entries,omitempty"`
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var showEntries bool

	cmd := &cobra.Command{
		Use:   "inspect <score>",
		Short: "Show a score's bells, turn counts and notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			s, err := score.Load(args[0])
			if err != nil {
				return err
			}
			report := buildInspectReport(s, cfg.Measure(), showEntries || asJSON)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d notes, %s\n", report.Name, report.Notes, report.Length)

			bellRows := make([][]string, 0, len(report.Bells))
			for _, b := range report.Bells {
				bellRows = append(bellRows, []string{b.Pitch, strconv.Itoa(b.Turns)})
			}
			fmt.Fprintln(out, tableSpec{
				headers: []string{"Bell", "Turns"},
				rows:    bellRows,
				aligns:  []columnAlignment{alignLeft, alignRight},
				footer:  []string{"Total", strconv.Itoa(report.Notes)},
			}.render())

			if showEntries {
				rows := make([][]string, 0, len(report.Entries))
				for _, e := range report.Entries {
					rows = append(rows, []string{
						strconv.Itoa(e.Index),
						e.Pitch,
						titleLabel(e.Duration),
						strconv.Itoa(e.Millis),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"#", "Pitch", "Duration", "ms"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
				))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the report as JSON")
	cmd.Flags().BoolVar(&showEntries, "notes", false, "List every note")
	return cmd
}

func buildInspectReport(s score.Score, measure time.Duration, withEntries bool) inspectReport {
	report := inspectReport{
		Name:   s.Name,
		Notes:  s.Len(),
		Length: s.Length(measure).String(),
	}
	counts := s.TurnCounts()
	for _, p := range s.Pitches() {
		report.Bells = append(report.Bells, inspectBell{Pitch: p.String(), Turns: counts[p]})
	}
	sort.SliceStable(report.Bells, func(i, j int) bool {
		return report.Bells[i].Turns > report.Bells[j].Turns
	})
	if withEntries {
		for i, e := range s.Entries {
			report.Entries = append(report.Entries, inspectEntry{
				Index:    i + 1,
				Pitch:    e.Pitch.String(),
				Duration: e.Duration.String(),
				Millis:   e.Duration.Millis(measure),
				Hertz:    e.Pitch.Frequency(),
			})
		}
	}
	return report
}
