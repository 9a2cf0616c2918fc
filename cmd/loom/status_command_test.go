package main

import (
	"context"
	"testing"
	"time"

	"loom/internal/classify"
	"loom/internal/dataset"
	"loom/internal/vector"
)

func TestStatusCommandBeforePublish(t *testing.T) {
	_, configPath := setupCLIConfig(t)

	stdout, _, err := runCLI(t, []string{"status"}, configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, stdout, "Dataset directory:")
	requireContains(t, stdout, "not published")
}

func TestStatusCommandShowsPublishedCorpus(t *testing.T) {
	cfg, configPath := setupCLIConfig(t)

	w := newTestCorpusWriter(t, cfg.Paths.DatasetDir)
	if err := w.Append(context.Background(), sampleStoredEpisode()); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := w.Finalize(context.Background()); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	stdout, _, err := runCLI(t, []string{"status"}, configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, stdout, "numbered")
	requireContains(t, stdout, "not published") // the other corpora stay unpublished

	stdout, _, err = runCLI(t, []string{"status", "numbered"}, configPath)
	if err != nil {
		t.Fatalf("status numbered: %v", err)
	}
	requireContains(t, stdout, "42")
	requireContains(t, stdout, "pick_cube")
	requireContains(t, stdout, "yes")
}

func TestStatusCommandRejectsUnknownCorpus(t *testing.T) {
	_, configPath := setupCLIConfig(t)

	_, _, err := runCLI(t, []string{"status", "bogus"}, configPath)
	if err == nil {
		t.Fatal("expected error for unknown corpus")
	}
	requireContains(t, err.Error(), "unknown corpus")
}

func newTestCorpusWriter(t *testing.T, datasetDir string) *dataset.Writer {
	t.Helper()
	w, err := dataset.NewWriter(datasetDir, classify.CorpusNumbered, dataset.WriterOptions{
		MaxEpisodesPerShard: 8,
		ImageSize:           16,
	})
	if err != nil {
		t.Fatalf("dataset.NewWriter: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func sampleStoredEpisode() *dataset.Episode {
	return &dataset.Episode{
		ID:             "42",
		TaskName:       "pick_cube",
		Instruction:    "42",
		Classification: classify.ClassNumbered,
		TaskSuccess:    true,
		ImageSize:      16,
		CreatedAt:      time.Now().UTC(),
		Steps: []dataset.Step{
			{
				Index:       0,
				Image:       make([]byte, 16*16*3),
				Placeholder: true,
				State:       [vector.Dim]float32{},
				Action:      [vector.Dim]float32{},
				Discount:    1,
				IsFirst:     true,
				IsLast:      true,
				IsTerminal:  true,
			},
		},
	}
}
