package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"shortsync/internal/config"
	"shortsync/internal/pipeline"
	"shortsync/internal/preflight"
	"shortsync/internal/services"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var scriptFile string
	var jsonOutput bool
	var skipChecks bool

	cmd := &cobra.Command{
		Use:   "render [script text]",
		Short: "Render one script into a synchronized vertical video",
		Long: "Render speaks the script, normalizes the audio, measures its exact duration and\n" +
			"encodes a captioned video of the same length. Text comes from the arguments,\n" +
			"or from --file (use - for stdin).",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readScriptInput(cmd.InOrStdin(), args, scriptFile)
			if err != nil {
				return err
			}
			orch, cfg, err := ctx.orchestrator()
			if err != nil {
				return err
			}
			if !skipChecks {
				if err := ctx.requirePreflight(cmd.Context(), cfg); err != nil {
					return err
				}
			}

			job, runErr := orch.Run(cmd.Context(), text)
			if jsonOutput {
				if err := writeJSON(cmd, newJobView(job, runErr)); err != nil {
					return err
				}
				return runErr
			}
			if runErr != nil {
				if hint := services.FailureHint(runErr); hint != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "hint: %s\n", hint)
				}
				return runErr
			}
			printJob(cmd.OutOrStdout(), job)
			return nil
		},
	}

	cmd.Flags().StringVarP(&scriptFile, "file", "f", "", "Read the script from a file (- for stdin)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the job result as JSON")
	cmd.Flags().BoolVar(&skipChecks, "skip-checks", false, "Skip the external tool preflight checks")
	return cmd
}

func readScriptInput(stdin io.Reader, args []string, scriptFile string) (string, error) {
	scriptFile = strings.TrimSpace(scriptFile)
	if scriptFile != "" && len(args) > 0 {
		return "", errors.New("pass script text as arguments or with --file, not both")
	}
	switch {
	case scriptFile == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read script from stdin: %w", err)
		}
		return string(data), nil
	case scriptFile != "":
		data, err := os.ReadFile(scriptFile)
		if err != nil {
			return "", fmt.Errorf("read script file: %w", err)
		}
		return string(data), nil
	case len(args) > 0:
		return strings.Join(args, " "), nil
	default:
		return "", errors.New("no script given: pass text as arguments or use --file")
	}
}

func printJob(out io.Writer, job *pipeline.Job) {
	fmt.Fprintf(out, "Rendered job %s in %s\n", job.ID, job.Elapsed().Round(time.Millisecond))
	if job.Script.Truncated() {
		fmt.Fprintf(out, "  %-12s %d of %d characters kept\n", "Script:", job.Script.Len(), job.Script.OriginalLen())
	}
	fmt.Fprintf(out, "  %-12s %s\n", "Speech:", job.RawAudioPath)
	fmt.Fprintf(out, "  %-12s %s\n", "Audio:", job.Audio.Path)
	fmt.Fprintf(out, "  %-12s %s\n", "Video:", job.Video.Path)
	fmt.Fprintf(out, "  %-12s audio %s, video %s (%d frames at %d fps, drift %s)\n", "Duration:",
		formatSeconds(job.Audio.DurationSeconds),
		formatSeconds(job.Video.DurationSeconds),
		job.Video.Frames, job.Video.FPS,
		fmt.Sprintf("%.3fs", job.Drift()),
	)
}

// requirePreflight refuses to start rendering when a required tool or the
// output directory is unusable.
func (c *commandContext) requirePreflight(ctx context.Context, cfg *config.Config) error {
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}
	failed := preflight.Failed(preflight.RunAll(ctx, cfg, c.processRunner(logger)))
	if len(failed) == 0 {
		return nil
	}
	parts := make([]string, 0, len(failed))
	for _, result := range failed {
		parts = append(parts, fmt.Sprintf("%s (%s)", result.Name, result.Detail))
	}
	return fmt.Errorf("%w: preflight failed: %s; run 'shortsync check' for details",
		services.ErrConfiguration, strings.Join(parts, ", "))
}
