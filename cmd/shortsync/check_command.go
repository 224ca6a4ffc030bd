package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shortsync/internal/config"
	"shortsync/internal/deps"
	"shortsync/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify external tools and directories are ready",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			runner := ctx.processRunner(logger)
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Configuration", colorize) {
				fmt.Fprintln(out, line)
			}
			configLabel := ctx.configPath
			if configLabel == "" {
				configLabel = "defaults"
			}
			fmt.Fprintln(out, renderStatusLine("Config", statusInfo, configLabel, colorize))
			engine := cfg.Synthesis.Engine
			if engine == config.EngineHTTP {
				engine += " " + cfg.Synthesis.URL
			}
			fmt.Fprintln(out, renderStatusLine("Synthesis", statusInfo, engine, colorize))
			fmt.Fprintln(out, renderStatusLine("Video", statusInfo,
				fmt.Sprintf("%dx%d @ %d fps, %s", cfg.Video.Width, cfg.Video.Height, cfg.Video.FPS, cfg.Video.Codec), colorize))
			fmt.Fprintln(out)

			for _, line := range renderSectionHeader("Checks", colorize) {
				fmt.Fprintln(out, line)
			}
			results := preflight.RunAll(cmd.Context(), cfg, runner)
			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			fmt.Fprintln(out)

			for _, line := range renderSectionHeader("Versions", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, tool := range deps.ForConfig(cfg) {
				version, err := deps.Version(cmd.Context(), runner, tool.Binary, tool.VersionFlag)
				if err != nil {
					fmt.Fprintln(out, renderStatusLine(tool.Name, statusWarn, "version unavailable", colorize))
					continue
				}
				fmt.Fprintln(out, renderStatusLine(tool.Name, statusInfo, version, colorize))
			}

			failed := preflight.Failed(results)
			if len(failed) == 0 {
				return nil
			}
			names := make([]string, 0, len(failed))
			for _, result := range failed {
				names = append(names, result.Name)
			}
			return fmt.Errorf("%d check(s) failed: %s", len(failed), strings.Join(names, ", "))
		},
	}
}
