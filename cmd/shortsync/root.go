package main

import (
	"github.com/spf13/cobra"

	"shortsync/internal/procexec"
)

func newRootCommand() *cobra.Command {
	return newRootCommandWithRunner(nil)
}

// newRootCommandWithRunner builds the command tree. A nil runner executes
// real processes.
func newRootCommandWithRunner(runner procexec.Runner) *cobra.Command {
	var configFlag string

	ctx := newCommandContext(&configFlag, runner)

	rootCmd := &cobra.Command{
		Use:           "shortsync",
		Short:         "Render scripts into duration-synchronized vertical videos",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newRenderCommand(ctx))
	rootCmd.AddCommand(newBatchCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newProbeCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
