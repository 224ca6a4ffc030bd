package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"shortsync/internal/media/ffprobe"
	"shortsync/internal/media/probe"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "probe <file>",
		Short: "Report a media file's duration and streams",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			prober := probe.New(ctx.processRunner(logger), cfg.Media.FFprobeBinary, logger)
			probeCtx := cmd.Context()
			result, err := prober.Inspect(probeCtx, args[0])
			if err != nil {
				return fmt.Errorf("probe %s: %w", args[0], err)
			}
			if jsonOutput {
				_, err := cmd.OutOrStdout().Write(result.RawJSON())
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", args[0])
			fmt.Fprintf(out, "  %-10s %s\n", "Duration:", formatSeconds(result.DurationSeconds()))
			if result.AudioStreamCount() > 0 {
				if measured, err := prober.Measure(probeCtx, args[0]); err == nil {
					fmt.Fprintf(out, "  %-10s %s\n", "Audio:", formatSeconds(measured))
				}
			}
			if size := result.SizeBytes(); size > 0 {
				fmt.Fprintf(out, "  %-10s %d bytes\n", "Size:", size)
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Type", "Codec", "Details", "Duration"},
				streamRows(result),
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the raw ffprobe JSON")
	return cmd
}

func streamRows(result ffprobe.Result) [][]string {
	rows := make([][]string, 0, len(result.Streams))
	for _, stream := range result.Streams {
		var details string
		switch stream.CodecType {
		case "video":
			details = fmt.Sprintf("%dx%d %.3g fps", stream.Width, stream.Height, stream.FrameRate())
		case "audio":
			details = fmt.Sprintf("%d Hz, %d ch, %d-bit", stream.SampleRateHz(), stream.Channels, stream.BitDepth())
		}
		rows = append(rows, []string{
			strconv.Itoa(stream.Index),
			stream.CodecType,
			stream.CodecName,
			details,
			formatSeconds(stream.DurationSeconds()),
		})
	}
	return rows
}
