package main

import (
	"strings"

	"github.com/spf13/cobra"

	"carillon/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var backend string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run preflight checks for the configured audio backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			checkCfg := *cfg
			if b := strings.ToLower(strings.TrimSpace(backend)); b != "" {
				checkCfg.Audio.Backend = b
				if err := checkCfg.Validate(); err != nil {
					return err
				}
			}

			rep := newReport(cmd.OutOrStdout())
			results := preflight.RunAll(cmd.Context(), &checkCfg)

			configLabel := ctx.configPath
			if configLabel == "" {
				configLabel = "(defaults)"
			}
			monitor := levelInfo
			if !checkCfg.Device.Monitor && checkCfg.Audio.Backend != "null" {
				monitor = levelWarn
			}
			rep.section("Configuration")
			rep.line("Config", levelInfo, configLabel)
			rep.line("Backend", levelInfo, checkCfg.Audio.Backend)
			rep.line("History", levelInfo, yesNo(checkCfg.History.Enabled))
			rep.line("Device monitor", monitor, yesNo(checkCfg.Device.Monitor))
			rep.blank()

			rep.section("Preflight")
			rep.preflight(results)
			return preflight.Err(results)
		},
	}
	cmd.Flags().StringVar(&backend, "backend", "", "Check this backend instead of the configured one")
	return cmd
}
