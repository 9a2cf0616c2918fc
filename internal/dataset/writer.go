package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"loom/internal/classify"
	"loom/internal/services"
	"loom/internal/vector"
)

// DefaultMaxEpisodesPerShard bounds episodes per shard file when the
// configuration does not override it.
const DefaultMaxEpisodesPerShard = 64

// DefaultDatasetName names the dataset when the configuration does not
// override it.
const DefaultDatasetName = "loom_episodes"

// WriterOptions tunes a corpus writer.
type WriterOptions struct {
	DatasetName         string
	Generator           string
	MaxEpisodesPerShard int
	ImageSize           int
}

func (o WriterOptions) withDefaults() WriterOptions {
	if o.DatasetName == "" {
		o.DatasetName = DefaultDatasetName
	}
	if o.Generator == "" {
		o.Generator = "loom"
	}
	if o.MaxEpisodesPerShard <= 0 {
		o.MaxEpisodesPerShard = DefaultMaxEpisodesPerShard
	}
	return o
}

// Writer appends encoded episodes to one corpus. Appends are serialized by
// an internal mutex; shard files fill up to MaxEpisodesPerShard and then a
// fresh shard starts. Nothing is visible to readers until Finalize, which
// publishes every shard of the run atomically (tmp file, then rename) and
// writes the corpus manifest.
type Writer struct {
	mu     sync.Mutex
	dir    string
	corpus classify.Corpus
	opts   WriterOptions

	current    *shard
	sealed     []*shard
	nextIndex  int
	finalized  bool
	totalSteps int
	totalEps   int
	totalPH    int
}

// WriterTotals reports what one writer appended during this run.
type WriterTotals struct {
	Episodes         int
	Steps            int
	PlaceholderSteps int
}

// NewWriter opens (creating if needed) the corpus directory under datasetDir
// and prepares to append after any shards published by earlier runs.
func NewWriter(datasetDir string, corpus classify.Corpus, opts WriterOptions) (*Writer, error) {
	dir := filepath.Join(datasetDir, string(corpus))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrShardWrite, "dataset", "open", fmt.Sprintf("create corpus directory %s", dir), err)
	}
	existing, err := listShards(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrShardWrite, "dataset", "open", "scan corpus directory", err)
	}
	next := 0
	for _, path := range existing {
		name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), "shard-"), ".db")
		index, err := strconv.Atoi(name)
		if err != nil {
			continue
		}
		if index >= next {
			next = index + 1
		}
	}
	return &Writer{dir: dir, corpus: corpus, opts: opts.withDefaults(), nextIndex: next}, nil
}

// Corpus returns the corpus this writer appends to.
func (w *Writer) Corpus() classify.Corpus { return w.corpus }

// Totals reports the episodes appended during this run.
func (w *Writer) Totals() WriterTotals {
	w.mu.Lock()
	defer w.mu.Unlock()
	return WriterTotals{Episodes: w.totalEps, Steps: w.totalSteps, PlaceholderSteps: w.totalPH}
}

// Append writes one encoded episode into the current shard, rotating to a
// new shard when the current one is full. A failure aborts this episode's
// transaction and leaves prior commits untouched; the writer stays usable.
func (w *Writer) Append(ctx context.Context, ep *Episode) error {
	if ep == nil || len(ep.Steps) == 0 {
		return services.Wrap(services.ErrEmptyEpisode, "dataset", "append", "episode has no steps", nil)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.finalized {
		return services.Wrap(services.ErrValidation, "dataset", "append", "writer already finalized", nil)
	}
	if w.current != nil && w.current.episodes >= w.opts.MaxEpisodesPerShard {
		if err := w.current.seal(); err != nil {
			return services.Wrap(services.ErrShardWrite, "dataset", "append", "seal full shard", err)
		}
		w.sealed = append(w.sealed, w.current)
		w.current = nil
	}
	if w.current == nil {
		sh, err := createShard(ctx, w.dir, w.nextIndex)
		if err != nil {
			return services.Wrap(services.ErrShardWrite, "dataset", "append", fmt.Sprintf("create shard %d", w.nextIndex), err)
		}
		w.nextIndex++
		w.current = sh
	}

	if err := w.appendTx(ctx, ep); err != nil {
		return services.Wrap(services.ErrShardWrite, "dataset", "append", fmt.Sprintf("append episode %s to %s", ep.ID, w.corpus), err)
	}
	w.current.episodes++
	w.totalEps++
	w.totalSteps += len(ep.Steps)
	w.totalPH += ep.PlaceholderSteps()
	return nil
}

func (w *Writer) appendTx(ctx context.Context, ep *Episode) error {
	createdAt := ep.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	tx, err := w.current.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin episode tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(
		ctx,
		`INSERT INTO episodes (
            episode_id, task_name, language_instruction, classification,
            task_success, duration_seconds, source_path, image_size,
            step_count, placeholder_steps, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ep.ID,
		ep.TaskName,
		ep.Instruction,
		string(ep.Classification),
		boolToInt(ep.TaskSuccess),
		ep.DurationSeconds,
		nullableString(ep.SourcePath),
		ep.ImageSize,
		len(ep.Steps),
		ep.PlaceholderSteps(),
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert episode: %w", err)
	}
	episodeRef, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}

	stmt, err := tx.PrepareContext(
		ctx,
		`INSERT INTO steps (
            episode_ref, step_index, image, placeholder, capture_offset_ms,
            state, action, reward, discount, is_first, is_last, is_terminal
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare step insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, step := range ep.Steps {
		if _, err := stmt.ExecContext(
			ctx,
			episodeRef,
			step.Index,
			step.Image,
			boolToInt(step.Placeholder),
			step.OffsetMS,
			vectorBlob(step.State),
			vectorBlob(step.Action),
			float64(step.Reward),
			float64(step.Discount),
			boolToInt(step.IsFirst),
			boolToInt(step.IsLast),
			boolToInt(step.IsTerminal),
		); err != nil {
			return fmt.Errorf("insert step %d: %w", step.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit episode: %w", err)
	}
	return nil
}

// Finalize publishes every shard written during this run and rewrites the
// corpus manifest from the published files. This is the commit point: a run
// aborted before Finalize leaves only *.tmp leftovers, which readers ignore
// and the next run clears.
func (w *Writer) Finalize(ctx context.Context) (*Manifest, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.finalized {
		return nil, services.Wrap(services.ErrValidation, "dataset", "finalize", "writer already finalized", nil)
	}
	if w.current != nil {
		w.sealed = append(w.sealed, w.current)
		w.current = nil
	}
	for _, sh := range w.sealed {
		if sh.episodes == 0 {
			// Nothing was appended; drop the empty container.
			if err := sh.seal(); err != nil {
				return nil, services.Wrap(services.ErrShardWrite, "dataset", "finalize", "seal empty shard", err)
			}
			if err := os.Remove(sh.tmpPath); err != nil && !os.IsNotExist(err) {
				return nil, services.Wrap(services.ErrShardWrite, "dataset", "finalize", "remove empty shard", err)
			}
			continue
		}
		if err := sh.publish(); err != nil {
			return nil, services.Wrap(services.ErrShardWrite, "dataset", "finalize", fmt.Sprintf("publish %s", filepath.Base(sh.path)), err)
		}
	}
	w.sealed = nil
	w.finalized = true

	manifest, err := w.buildManifest(ctx)
	if err != nil {
		return nil, err
	}
	if err := writeManifest(w.dir, manifest); err != nil {
		return nil, services.Wrap(services.ErrShardWrite, "dataset", "finalize", "write manifest", err)
	}
	return manifest, nil
}

// buildManifest recounts from the published shards so manifest counts always
// equal what a reader will see, including shards from earlier runs.
func (w *Writer) buildManifest(ctx context.Context) (*Manifest, error) {
	shards, err := listShards(w.dir)
	if err != nil {
		return nil, services.Wrap(services.ErrShardWrite, "dataset", "finalize", "scan corpus directory", err)
	}
	manifest := &Manifest{
		DatasetName: w.opts.DatasetName,
		Corpus:      string(w.corpus),
		Generator:   w.opts.Generator,
		CreatedAt:   time.Now().UTC(),
		ImageSize:   w.opts.ImageSize,
		VectorDim:   vector.Dim,
		Shards:      len(shards),
	}
	for _, path := range shards {
		db, err := openShardDB(path)
		if err != nil {
			return nil, services.Wrap(services.ErrShardWrite, "dataset", "finalize", fmt.Sprintf("reopen %s", filepath.Base(path)), err)
		}
		var episodes, steps, placeholders int
		row := db.QueryRowContext(ctx,
			"SELECT COUNT(1), COALESCE(SUM(step_count), 0), COALESCE(SUM(placeholder_steps), 0) FROM episodes")
		scanErr := row.Scan(&episodes, &steps, &placeholders)
		closeErr := db.Close()
		if scanErr != nil {
			return nil, services.Wrap(services.ErrShardWrite, "dataset", "finalize", fmt.Sprintf("count %s", filepath.Base(path)), scanErr)
		}
		if closeErr != nil {
			return nil, services.Wrap(services.ErrShardWrite, "dataset", "finalize", fmt.Sprintf("close %s", filepath.Base(path)), closeErr)
		}
		manifest.Episodes += episodes
		manifest.Steps += steps
		manifest.PlaceholderSteps += placeholders
	}
	if manifest.Steps > 0 {
		manifest.PlaceholderShare = float64(manifest.PlaceholderSteps) / float64(manifest.Steps)
	}
	return manifest, nil
}

// Close releases the writer without publishing. After Finalize it is a
// no-op; on an aborted run it leaves tmp shards behind for the next run to
// clear.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var firstErr error
	if w.current != nil {
		firstErr = w.current.seal()
		w.sealed = append(w.sealed, w.current)
		w.current = nil
	}
	for _, sh := range w.sealed {
		if err := sh.seal(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
