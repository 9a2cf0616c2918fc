package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"loom/internal/classify"
	"loom/internal/config"
	"loom/internal/dataset"
	"loom/internal/services"
)

// maxEpisodeRows caps the per-corpus episode listing.
const maxEpisodeRows = 50

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status [corpus]",
		Short: "Show the published dataset corpora",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				return renderCorpusEpisodes(cmd.Context(), out, cfg, args[0])
			}
			return renderDatasetOverview(out, cfg)
		},
	}
}

func renderDatasetOverview(out io.Writer, cfg *config.Config) error {
	fmt.Fprintf(out, "Dataset directory: %s\n", cfg.Paths.DatasetDir)

	rows := make([][]string, 0, len(classify.AllCorpora))
	for _, corpus := range classify.AllCorpora {
		dir := filepath.Join(cfg.Paths.DatasetDir, string(corpus))
		reader, err := dataset.OpenCorpus(dir)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				rows = append(rows, []string{string(corpus), "-", "-", "-", "-", "-", "not published"})
				continue
			}
			return err
		}
		manifest, err := reader.Manifest()
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				rows = append(rows, []string{string(corpus), "-", "-", "-", "-", "-", "no manifest"})
				continue
			}
			return err
		}
		rows = append(rows, []string{
			string(corpus),
			strconv.Itoa(manifest.Episodes),
			humanize.Comma(int64(manifest.Steps)),
			fmt.Sprintf("%.1f%%", manifest.PlaceholderShare*100),
			strconv.Itoa(manifest.Shards),
			humanize.Bytes(shardBytes(reader.Shards())),
			humanize.Time(manifest.CreatedAt),
		})
	}

	fmt.Fprintln(out, renderTable(
		[]string{"Corpus", "Episodes", "Steps", "Placeholders", "Shards", "Size", "Published"},
		rows, 1, 2, 3, 4, 5,
	))
	return nil
}

func renderCorpusEpisodes(ctx context.Context, out io.Writer, cfg *config.Config, name string) error {
	corpus := classify.Corpus(name)
	if !validCorpus(corpus) {
		return fmt.Errorf("unknown corpus %q (valid: all, numbered, autorecorded)", name)
	}

	reader, err := dataset.OpenCorpus(filepath.Join(cfg.Paths.DatasetDir, string(corpus)))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			fmt.Fprintf(out, "Corpus %s has not been published yet.\n", corpus)
			return nil
		}
		return err
	}
	refs, err := reader.Episodes(ctx)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		fmt.Fprintf(out, "Corpus %s is empty.\n", corpus)
		return nil
	}

	rows := make([][]string, 0, len(refs))
	for i, ref := range refs {
		if i == maxEpisodeRows {
			rows = append(rows, []string{fmt.Sprintf("… and %d more", len(refs)-maxEpisodeRows), "", "", "", "", ""})
			break
		}
		rows = append(rows, []string{
			ref.EpisodeID,
			ref.TaskName,
			string(ref.Classification),
			yesNo(ref.TaskSuccess),
			strconv.Itoa(ref.StepCount),
			strconv.Itoa(ref.PlaceholderSteps),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Episode", "Task", "Class", "Success", "Steps", "Placeholders"},
		rows, 4, 5,
	))
	return nil
}

func validCorpus(corpus classify.Corpus) bool {
	for _, known := range classify.AllCorpora {
		if corpus == known {
			return true
		}
	}
	return false
}

func shardBytes(paths []string) uint64 {
	var total uint64
	for _, path := range paths {
		if info, err := os.Stat(path); err == nil {
			total += uint64(info.Size())
		}
	}
	return total
}
