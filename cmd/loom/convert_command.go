package main

import (
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"loom/internal/logging"
	"loom/internal/pipeline"
)

// maxExclusionRows caps the exclusion table so one bad batch cannot flood
// the terminal; the full list is in the structured log.
const maxExclusionRows = 20

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var noProgress bool

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert recorded episodes into the training dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			out := cmd.OutOrStdout()
			opts := []pipeline.Option{pipeline.WithGenerator("loom " + version)}
			var bar *progressbar.ProgressBar
			if !noProgress && isTerminal(out) {
				opts = append(opts, pipeline.WithProgress(func(done, total int) {
					if bar == nil {
						bar = progressbar.NewOptions(total,
							progressbar.OptionSetDescription("encoding episodes"),
							progressbar.OptionSetWriter(out),
							progressbar.OptionShowCount(),
							progressbar.OptionClearOnFinish(),
						)
					}
					_ = bar.Set(done)
				}))
			}

			report, runErr := pipeline.New(cfg, logger, opts...).Run(runCtx)
			if bar != nil {
				_ = bar.Finish()
				fmt.Fprintln(out)
			}
			if report != nil {
				renderRunReport(out, report)
			}
			return runErr
		},
	}

	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")
	return cmd
}

func renderRunReport(out io.Writer, report *pipeline.Report) {
	summaryRows := [][]string{
		{"Episodes discovered", strconv.Itoa(report.Discovered)},
		{"Episodes encoded", strconv.Itoa(report.Encoded)},
		{"Episodes excluded", strconv.Itoa(len(report.Excluded))},
		{"Samples dropped", strconv.Itoa(report.DroppedSamples)},
		{"Matched steps", humanize.Comma(int64(report.MatchedSteps))},
		{"Placeholder steps", humanize.Comma(int64(report.PlaceholderSteps))},
		{"Mean image offset", fmt.Sprintf("%.1f ms", report.MeanOffsetMS)},
		{"Duration", report.Duration().Round(time.Millisecond).String()},
	}
	fmt.Fprintln(out, renderTable([]string{"Run Summary", ""}, summaryRows, 1))

	corpusRows := make([][]string, 0, len(report.Corpora))
	for _, summary := range report.Corpora {
		if summary.FinalizeErr != nil {
			corpusRows = append(corpusRows, []string{
				string(summary.Corpus),
				strconv.Itoa(summary.Appended.Episodes),
				strconv.Itoa(summary.Appended.Steps),
				"-", "-",
				"finalize failed",
			})
			continue
		}
		manifest := summary.Manifest
		corpusRows = append(corpusRows, []string{
			string(summary.Corpus),
			strconv.Itoa(manifest.Episodes),
			humanize.Comma(int64(manifest.Steps)),
			fmt.Sprintf("%.1f%%", manifest.PlaceholderShare*100),
			strconv.Itoa(manifest.Shards),
			"published",
		})
	}
	if len(corpusRows) > 0 {
		fmt.Fprintln(out, renderTable(
			[]string{"Corpus", "Episodes", "Steps", "Placeholders", "Shards", "State"},
			corpusRows, 1, 2, 3, 4,
		))
	}

	if len(report.Excluded) > 0 {
		rows := make([][]string, 0, len(report.Excluded))
		for i, exclusion := range report.Excluded {
			if i == maxExclusionRows {
				rows = append(rows, []string{fmt.Sprintf("… and %d more", len(report.Excluded)-maxExclusionRows), ""})
				break
			}
			rows = append(rows, []string{exclusion.EpisodeID, exclusion.Reason})
		}
		fmt.Fprintln(out, renderTable([]string{"Excluded Episode", "Reason"}, rows))
	}

	if len(report.Anomalies) > 0 {
		fmt.Fprintf(out, "%d anomalies recovered during encoding; see the run log for details.\n", len(report.Anomalies))
	}
}
