package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"carillon/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or check the configuration file",
	}
	cmd.AddCommand(newConfigInitCommand(), newConfigValidateCommand(ctx))
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		pathFlag  string
		overwrite bool
	)
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a commented sample configuration",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(pathFlag)
			if err != nil {
				return err
			}
			if !overwrite {
				_, statErr := os.Stat(target)
				switch {
				case statErr == nil:
					return fmt.Errorf("%s exists; pass --overwrite to replace it", target)
				case !errors.Is(statErr, fs.ErrNotExist):
					return fmt.Errorf("check %s: %w", target, statErr)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(cmd.OutOrStdout(), `Machines without a sound card can set audio.backend = "wav" or "null".`)
			return nil
		},
	}
	cmd.Flags().StringVarP(&pathFlag, "path", "p", "", "Write the sample here instead of the default location")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func initTarget(flag string) (string, error) {
	flag = strings.TrimSpace(flag)
	if flag == "" {
		return config.DefaultConfigPath()
	}
	return config.ExpandPath(flag)
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the configuration and report the effective audio settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			source := "(built-in defaults)"
			if ctx.configPath != "" {
				source = ctx.configPath
				if _, err := os.Stat(source); err != nil {
					source += " (missing, defaults used)"
				}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config: %s\n", source)
			fmt.Fprintf(out, "Audio:  %s at %d Hz, %s per measure, volume %d\n",
				cfg.Audio.Backend, cfg.Audio.SampleRate, cfg.Measure(), cfg.Audio.Volume)
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}
