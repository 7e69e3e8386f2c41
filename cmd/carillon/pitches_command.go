package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"carillon/internal/pitch"
)

func newPitchesCommand() *cobra.Command {
	var showDurations bool

	cmd := &cobra.Command{
		Use:         "pitches",
		Short:       "List the pitches and note lengths a score may use",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			rows := make([][]string, 0, pitch.Count())
			for _, p := range pitch.All() {
				freq, key := "-", "-"
				if n, ok := p.MIDIKey(); ok {
					freq = strconv.FormatFloat(p.Frequency(), 'f', 2, 64)
					key = strconv.Itoa(int(n))
				}
				rows = append(rows, []string{p.String(), freq, key})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Pitch", "Hz", "MIDI"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight},
			))

			if showDurations {
				durRows := make([][]string, 0, len(pitch.Durations()))
				for _, d := range pitch.Durations() {
					durRows = append(durRows, []string{
						d.String(),
						titleLabel(d.String()),
						strconv.FormatFloat(d.Fraction(), 'f', 4, 64),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Token", "Length", "Measure"},
					durRows,
					[]columnAlignment{alignLeft, alignLeft, alignRight},
				))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showDurations, "durations", false, "Also list note lengths")
	return cmd
}
