package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"shortsync/internal/pipeline"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var concurrency int
	var jsonOutput bool
	var skipChecks bool

	cmd := &cobra.Command{
		Use:   "batch <scripts-file>",
		Short: "Render every script in a file",
		Long: "Batch reads scripts separated by blank lines (use - for stdin) and renders them\n" +
			"with at most --concurrency jobs at once. A failed script does not stop the others.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scripts, err := readScripts(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			if len(scripts) == 0 {
				return errors.New("no scripts found in input")
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
			if concurrency <= 0 {
				concurrency = cfg.Workers.Concurrency
			}

			report := orch.Batch(cmd.Context(), scripts, concurrency)
			if jsonOutput {
				if err := writeJSON(cmd, newBatchView(report)); err != nil {
					return err
				}
			} else {
				printBatch(cmd.OutOrStdout(), report)
			}
			if failed := report.Failed(); failed > 0 {
				return fmt.Errorf("%d of %d scripts failed", failed, len(report.Results))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 0, "Maximum concurrent jobs (default from workers.concurrency)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	cmd.Flags().BoolVar(&skipChecks, "skip-checks", false, "Skip the external tool preflight checks")
	return cmd
}

func readScripts(stdin io.Reader, source string) ([]string, error) {
	var data []byte
	var err error
	if source == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("read scripts: %w", err)
	}
	return splitScripts(string(data)), nil
}

// splitScripts treats each run of non-blank lines as one script, joining its
// lines with single spaces.
func splitScripts(data string) []string {
	var scripts []string
	var current []string
	flush := func() {
		if len(current) > 0 {
			scripts = append(scripts, strings.Join(current, " "))
			current = nil
		}
	}
	for _, line := range strings.Split(strings.ReplaceAll(data, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return scripts
}

type batchView struct {
	CorrelationID string    `json:"correlation_id"`
	Completed     int       `json:"completed"`
	Failed        int       `json:"failed"`
	Jobs          []jobView `json:"jobs"`
}

func newBatchView(report pipeline.BatchReport) batchView {
	view := batchView{
		CorrelationID: report.CorrelationID,
		Failed:        report.Failed(),
		Jobs:          make([]jobView, 0, len(report.Results)),
	}
	view.Completed = len(report.Results) - view.Failed
	for _, result := range report.Results {
		job := newJobView(result.Job, result.Err)
		index := result.Index
		job.Index = &index
		view.Jobs = append(view.Jobs, job)
	}
	return view
}

func printBatch(out io.Writer, report pipeline.BatchReport) {
	headers := []string{"#", "Job", "Stage", "Audio", "Video", "Output"}
	rows := make([][]string, 0, len(report.Results))
	for _, result := range report.Results {
		row := []string{strconv.Itoa(result.Index + 1), "-", "-", "-", "-", ""}
		if job := result.Job; job != nil {
			row[1] = job.ID
			row[2] = job.Stage.Label()
			if job.Audio != nil {
				row[3] = formatSeconds(job.Audio.DurationSeconds)
			}
			if job.Video != nil {
				row[4] = formatSeconds(job.Video.DurationSeconds)
				row[5] = job.Video.Path
			}
		}
		if result.Err != nil {
			row[2] = pipeline.StageFailed.Label()
			if result.Job != nil && result.Job.FailedStage != "" {
				row[2] += " (" + string(result.Job.FailedStage) + ")"
			}
			row[5] = truncateCell(result.Err.Error(), 72)
		}
		rows = append(rows, row)
	}
	fmt.Fprintln(out, renderTable(headers, rows, []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft}))
	failed := report.Failed()
	fmt.Fprintf(out, "%d rendered, %d failed (batch %s)\n", len(report.Results)-failed, failed, report.CorrelationID)
}

func truncateCell(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
