package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"carillon/internal/config"
	"carillon/internal/midiexport"
	"carillon/internal/performance"
	"carillon/internal/score"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export a score to MIDI or WAV",
	}
	exportCmd.AddCommand(newExportMIDICommand(ctx))
	exportCmd.AddCommand(newExportWAVCommand(ctx))
	return exportCmd
}

func newExportMIDICommand(ctx *commandContext) *cobra.Command {
	var tempo float64

	cmd := &cobra.Command{
		Use:   "midi <score> [out.mid]",
		Short: "Write a score as a Standard MIDI File",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			s, err := score.Load(args[0])
			if err != nil {
				return err
			}
			target, err := exportTarget(cfg, args, s.Name, ".mid")
			if err != nil {
				return err
			}

			opts := midiexport.OptionsFromConfig(cfg)
			if cmd.Flags().Changed("tempo") {
				opts.TempoBPM = tempo
			}
			if err := midiexport.WriteFile(target, s, opts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d notes at %.1f BPM to %s\n", s.Len(), opts.Tempo(), target)
			return nil
		},
	}
	cmd.Flags().Float64Var(&tempo, "tempo", 0, "Tempo in BPM (default derives from audio.measure_seconds)")
	return cmd
}

func newExportWAVCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "wav <score> [out.wav]",
		Short: "Render a score to an 8-bit mono WAV file",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			name := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			target, err := exportTarget(cfg, args, name, ".wav")
			if err != nil {
				return err
			}

			result, err := performance.Run(cmd.Context(), cfg, performance.Options{
				ScorePath: args[0],
				Backend:   config.BackendWAV,
				WAVPath:   target,
				Logger:    logger,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rendered %d notes (%s) to %s\n",
				result.NotesPlayed, result.Score.Length(cfg.Measure()), result.Output)
			return nil
		},
	}
}

// exportTarget picks the explicit output argument or a file named after the
// score in the export directory.
func exportTarget(cfg *config.Config, args []string, name, ext string) (string, error) {
	if len(args) > 1 && strings.TrimSpace(args[1]) != "" {
		return config.ExpandPath(strings.TrimSpace(args[1]))
	}
	if err := os.MkdirAll(cfg.Paths.ExportDir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	return filepath.Join(cfg.Paths.ExportDir, name+ext), nil
}
