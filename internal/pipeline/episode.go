package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"loom/internal/classify"
	"loom/internal/dataset"
	"loom/internal/imageindex"
	"loom/internal/logging"
	"loom/internal/match"
	"loom/internal/services"
	"loom/internal/trace"
	"loom/internal/vector"
)

// episodeOutcome carries one episode's result back from a worker.
type episodeOutcome struct {
	path      string
	episodeID string

	// err marks the episode excluded; reason, when set, overrides the
	// default wording derived from err.
	err    error
	reason string

	class            classify.Class
	steps            int
	placeholderSteps int
	loadStats        trace.Stats
	matchStats       match.Stats
	anomalies        []dataset.Anomaly
}

// processEpisode runs one recording through the full conversion chain and
// appends the result to every corpus the episode belongs to.
func (p *Pipeline) processEpisode(ctx context.Context, path string, writers map[classify.Corpus]*dataset.Writer) episodeOutcome {
	outcome := episodeOutcome{path: path, episodeID: episodeStem(path)}
	if err := ctx.Err(); err != nil {
		outcome.err = err
		outcome.reason = "run canceled"
		return outcome
	}

	ctx = services.WithEpisodeID(ctx, outcome.episodeID)
	logger := logging.WithContext(ctx, p.logger)

	ep, loadStats, err := trace.LoadFile(path)
	outcome.loadStats = loadStats
	if err != nil {
		logging.WarnWithContext(logger, "episode excluded", "episode_excluded",
			logging.String("path", path),
			logging.Error(err),
		)
		outcome.err = err
		return outcome
	}
	if loadStats.Dropped > 0 {
		logging.WarnWithContext(logger, "malformed samples dropped", "samples_dropped",
			logging.Int("dropped", loadStats.Dropped),
			logging.Int("parsed", loadStats.Parsed),
		)
	}
	if loadStats.Resorted {
		logging.WarnWithContext(logger, "samples out of order; re-sorted by timestamp", "samples_resorted")
	}

	imageDir := resolveImageDir(p.cfg.Paths.ImagesDir, ep.ID, ep.TaskName)
	records, idxStats, err := imageindex.IndexDir(imageDir)
	if err != nil {
		logging.WarnWithContext(logger, "episode excluded", "episode_excluded",
			logging.String("image_dir", imageDir),
			logging.Error(err),
		)
		outcome.err = err
		return outcome
	}
	if idxStats.SkippedNoTimestamp > 0 || idxStats.SidecarErrors > 0 {
		logging.WarnWithContext(logger, "frames skipped during indexing", "frames_skipped",
			logging.Int("no_timestamp", idxStats.SkippedNoTimestamp),
			logging.Int("sidecar_errors", idxStats.SidecarErrors),
		)
	}

	steps := match.Match(ep.Samples, records, match.Params{
		MaxOffset:    time.Duration(p.cfg.Matching.MaxOffsetMS) * time.Millisecond,
		SearchRadius: p.cfg.Matching.SearchRadius,
	})
	outcome.matchStats = match.Summarize(steps)

	if min := p.cfg.Matching.MinEpisodeSteps; min > 0 && len(steps) < min {
		outcome.reason = fmt.Sprintf("shorter than %d steps", min)
		outcome.err = services.Wrap(services.ErrValidation, "pipeline", "filter", outcome.reason, nil)
		logging.WarnWithContext(logger, "episode excluded", "episode_excluded",
			logging.Int("steps", len(steps)),
			logging.Int("min_steps", min),
		)
		return outcome
	}

	outcome.class = classify.Classify(ep.ID)
	vectors := vector.Build(ep.Samples)
	encoded, anomalies := dataset.Encode(ep, steps, vectors, outcome.class, dataset.EncodeOptions{
		ImageSize: p.cfg.Encoding.ImageSize,
	})
	outcome.anomalies = anomalies
	for _, a := range anomalies {
		logging.WarnWithContext(logger, "image unreadable; placeholder substituted", "image_decode_failed",
			logging.Int("step", a.Step),
			logging.Error(a.Err),
		)
	}
	outcome.steps = len(encoded.Steps)
	outcome.placeholderSteps = encoded.PlaceholderSteps()

	for _, corpus := range classify.Corpora(outcome.class) {
		if err := writers[corpus].Append(ctx, encoded); err != nil {
			logging.ErrorWithContext(logger, "episode append failed", "append_failed",
				logging.String(logging.FieldCorpus, string(corpus)),
				logging.Error(err),
			)
			outcome.err = err
			return outcome
		}
	}

	logger.Info("episode encoded",
		logging.String(logging.FieldTask, ep.TaskName),
		logging.String("classification", string(outcome.class)),
		logging.Int("steps", outcome.steps),
		logging.Int("placeholder_steps", outcome.placeholderSteps),
	)
	return outcome
}

// episodeStem derives the episode ID from a trace filename, so failures
// before the file parses still report a usable identifier.
func episodeStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
