package pipeline

import (
	"time"

	"loom/internal/classify"
	"loom/internal/dataset"
)

// Exclusion records one episode that reached no corpus, with the
// user-facing reason from the failure taxonomy.
type Exclusion struct {
	EpisodeID string
	Path      string
	Reason    string
}

// Anomaly records a locally recovered problem worth surfacing at run end.
type Anomaly struct {
	EpisodeID string
	Detail    string
}

// CorpusSummary reports one corpus after finalize. Manifest counts are
// cumulative over the corpus directory; Appended covers only this run.
type CorpusSummary struct {
	Corpus      classify.Corpus
	Appended    dataset.WriterTotals
	Manifest    *dataset.Manifest
	FinalizeErr error
}

// Report is the run-end summary handed to the CLI and the logs.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	Discovered int
	Encoded    int
	Excluded   []Exclusion

	DroppedSamples   int
	MatchedSteps     int
	PlaceholderSteps int
	MeanOffsetMS     float64

	Corpora   []CorpusSummary
	Anomalies []Anomaly
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// ExcludedCount returns how many episodes were excluded.
func (r *Report) ExcludedCount() int { return len(r.Excluded) }
