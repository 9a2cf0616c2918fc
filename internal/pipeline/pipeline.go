package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"loom/internal/classify"
	"loom/internal/config"
	"loom/internal/dataset"
	"loom/internal/logging"
	"loom/internal/notifications"
	"loom/internal/services"
)

// lockFileName guards the dataset directory against interleaved runs.
const lockFileName = ".loom.lock"

// ProgressFunc receives completion ticks while episodes are processed.
type ProgressFunc func(done, total int)

// Pipeline runs the full conversion: discover recordings, process each
// episode on a worker, and publish the corpus shards.
type Pipeline struct {
	cfg       *config.Config
	logger    *slog.Logger
	notifier  notifications.Service
	generator string
	progress  ProgressFunc
}

// Option configures optional Pipeline behavior.
type Option func(*Pipeline)

// WithNotifier overrides the notification service (used in tests).
func WithNotifier(svc notifications.Service) Option {
	return func(p *Pipeline) { p.notifier = svc }
}

// WithGenerator stamps corpus manifests with the producing build.
func WithGenerator(generator string) Option {
	return func(p *Pipeline) { p.generator = generator }
}

// WithProgress installs a per-episode completion callback.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// New constructs a conversion pipeline.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Pipeline{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
		generator: "loom",
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.notifier == nil {
		p.notifier = notifications.NewService(cfg)
	}
	return p
}

// Run converts every discovered recording into the output corpora and
// returns the run report. The report is returned even on failure so callers
// can show what happened before the error.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := &Report{RunID: uuid.NewString(), StartedAt: time.Now().UTC()}
	ctx = services.WithRunID(ctx, report.RunID)
	logger := p.logger.With(logging.String(logging.FieldRunID, report.RunID))

	if err := p.cfg.EnsureDirectories(); err != nil {
		return report, services.Wrap(services.ErrConfiguration, "pipeline", "run", "ensure directories", err)
	}

	traces, err := discoverTraces(p.cfg.Paths.RecordingsDir)
	if err != nil {
		return report, err
	}
	report.Discovered = len(traces)

	lock := flock.New(filepath.Join(p.cfg.Paths.DatasetDir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return report, fmt.Errorf("acquire dataset lock: %w", err)
	}
	if !locked {
		return report, errors.New("another loom run holds the dataset lock")
	}
	defer func() { _ = lock.Unlock() }()

	logger.Info("dataset run started",
		logging.Int("episodes", report.Discovered),
		logging.String(logging.FieldEventType, "run_started"),
	)
	if err := p.notifier.NotifyRunStarted(ctx, report.Discovered); err != nil {
		logger.Warn("run-start notification failed", logging.Error(err))
	}

	writers, err := p.openWriters()
	if err != nil {
		p.notifyFailure(ctx, logger, err, "startup")
		return report, err
	}
	defer func() {
		for _, w := range writers {
			_ = w.Close()
		}
	}()

	p.processAll(ctx, traces, writers, report)

	if ctx.Err() != nil {
		report.FinishedAt = time.Now().UTC()
		logger.Warn("run canceled before finalize; no shards were published",
			logging.Int("encoded", report.Encoded),
			logging.String(logging.FieldEventType, "run_canceled"),
		)
		p.notifyFailure(ctx, logger, ctx.Err(), "processing")
		return report, ctx.Err()
	}

	var finalizeErrs []error
	for _, corpus := range classify.AllCorpora {
		w := writers[corpus]
		summary := CorpusSummary{Corpus: corpus, Appended: w.Totals()}
		manifest, err := w.Finalize(ctx)
		if err != nil {
			summary.FinalizeErr = err
			finalizeErrs = append(finalizeErrs, fmt.Errorf("finalize %s: %w", corpus, err))
			logging.ErrorWithContext(logger, "corpus finalize failed", "finalize_failed",
				logging.Error(err),
				logging.String(logging.FieldCorpus, string(corpus)),
			)
		} else {
			summary.Manifest = manifest
		}
		report.Corpora = append(report.Corpora, summary)
	}

	sortReport(report)
	report.FinishedAt = time.Now().UTC()

	if len(finalizeErrs) > 0 {
		err := errors.Join(finalizeErrs...)
		p.notifyFailure(ctx, logger, err, "finalize")
		return report, err
	}

	logger.Info("dataset run complete",
		logging.Int("encoded", report.Encoded),
		logging.Int("excluded", len(report.Excluded)),
		logging.Int("placeholder_steps", report.PlaceholderSteps),
		logging.Duration("duration", report.Duration()),
		logging.String(logging.FieldEventType, "run_completed"),
	)
	if err := p.notifier.NotifyRunCompleted(ctx, report.Encoded, len(report.Excluded), report.Duration()); err != nil {
		logger.Warn("run-complete notification failed", logging.Error(err))
	}
	return report, nil
}

func (p *Pipeline) openWriters() (map[classify.Corpus]*dataset.Writer, error) {
	opts := dataset.WriterOptions{
		DatasetName:         p.cfg.Encoding.DatasetName,
		Generator:           p.generator,
		MaxEpisodesPerShard: p.cfg.Encoding.MaxEpisodesPerShard,
		ImageSize:           p.cfg.Encoding.ImageSize,
	}
	writers := make(map[classify.Corpus]*dataset.Writer, len(classify.AllCorpora))
	for _, corpus := range classify.AllCorpora {
		w, err := dataset.NewWriter(p.cfg.Paths.DatasetDir, corpus, opts)
		if err != nil {
			for _, opened := range writers {
				_ = opened.Close()
			}
			return nil, err
		}
		writers[corpus] = w
	}
	return writers, nil
}

// processAll fans the trace list out to the worker pool and folds outcomes
// into the report as they complete.
func (p *Pipeline) processAll(ctx context.Context, traces []string, writers map[classify.Corpus]*dataset.Writer, report *Report) {
	if len(traces) == 0 {
		return
	}
	workers := p.cfg.Encoding.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(traces) {
		workers = len(traces)
	}

	jobs := make(chan string)
	outcomes := make(chan episodeOutcome)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for path := range jobs {
				outcomes <- p.processEpisode(ctx, path, writers)
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, path := range traces {
			select {
			case <-ctx.Done():
				return
			case jobs <- path:
			}
		}
	}()
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	done := 0
	var offsetSum float64
	for outcome := range outcomes {
		done++
		if p.progress != nil {
			p.progress(done, report.Discovered)
		}

		report.DroppedSamples += outcome.loadStats.Dropped
		if outcome.loadStats.Dropped > 0 {
			report.Anomalies = append(report.Anomalies, Anomaly{
				EpisodeID: outcome.episodeID,
				Detail:    fmt.Sprintf("%d malformed samples dropped", outcome.loadStats.Dropped),
			})
		}
		if outcome.loadStats.Resorted {
			report.Anomalies = append(report.Anomalies, Anomaly{
				EpisodeID: outcome.episodeID,
				Detail:    "samples re-sorted into timestamp order",
			})
		}
		for _, a := range outcome.anomalies {
			report.Anomalies = append(report.Anomalies, Anomaly{
				EpisodeID: outcome.episodeID,
				Detail:    fmt.Sprintf("step %d image unreadable; placeholder substituted", a.Step),
			})
		}

		if outcome.err != nil {
			reason := outcome.reason
			if reason == "" {
				reason = services.ExclusionReason(outcome.err)
			}
			report.Excluded = append(report.Excluded, Exclusion{
				EpisodeID: outcome.episodeID,
				Path:      outcome.path,
				Reason:    reason,
			})
			continue
		}

		report.Encoded++
		report.MatchedSteps += outcome.matchStats.Matched
		report.PlaceholderSteps += outcome.placeholderSteps
		offsetSum += outcome.matchStats.MeanOffsetMS * float64(outcome.matchStats.Matched)
	}
	if report.MatchedSteps > 0 {
		report.MeanOffsetMS = offsetSum / float64(report.MatchedSteps)
	}
}

func (p *Pipeline) notifyFailure(ctx context.Context, logger *slog.Logger, err error, label string) {
	if notifyErr := p.notifier.NotifyRunFailed(context.WithoutCancel(ctx), err, label); notifyErr != nil {
		logger.Warn("failure notification failed", logging.Error(notifyErr))
	}
}

// sortReport orders exclusions and anomalies by episode for stable output;
// outcomes arrive in completion order, which varies across workers.
func sortReport(report *Report) {
	sort.Slice(report.Excluded, func(i, j int) bool {
		return report.Excluded[i].EpisodeID < report.Excluded[j].EpisodeID
	})
	sort.Slice(report.Anomalies, func(i, j int) bool {
		if report.Anomalies[i].EpisodeID != report.Anomalies[j].EpisodeID {
			return report.Anomalies[i].EpisodeID < report.Anomalies[j].EpisodeID
		}
		return report.Anomalies[i].Detail < report.Anomalies[j].Detail
	})
}
