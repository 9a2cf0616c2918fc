package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"loom/internal/classify"
	"loom/internal/services"
)

const episodeColumns = "id, episode_id, task_name, language_instruction, classification, task_success, duration_seconds, source_path, image_size, step_count, placeholder_steps, created_at"

// EpisodeRef identifies one stored episode and carries its metadata row, so
// listings never touch the step blobs.
type EpisodeRef struct {
	Shard            string
	Row              int64
	EpisodeID        string
	TaskName         string
	Instruction      string
	Classification   classify.Class
	TaskSuccess      bool
	DurationSeconds  float64
	SourcePath       string
	ImageSize        int
	StepCount        int
	PlaceholderSteps int
	CreatedAt        time.Time
}

// Reader loads a published corpus: the shard files present in one corpus
// directory. Unpublished *.tmp leftovers are never read.
type Reader struct {
	dir    string
	shards []string
}

// OpenCorpus opens a corpus directory for reading.
func OpenCorpus(dir string) (*Reader, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, services.Wrap(services.ErrNotFound, "dataset", "open", fmt.Sprintf("no corpus directory at %s", dir), err)
		}
		return nil, fmt.Errorf("stat corpus directory: %w", err)
	}
	if !info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, "dataset", "open", fmt.Sprintf("%s is not a directory", dir), nil)
	}
	shards, err := listShards(dir)
	if err != nil {
		return nil, err
	}
	return &Reader{dir: dir, shards: shards}, nil
}

// Shards lists the published shard files in index order.
func (r *Reader) Shards() []string {
	out := make([]string, len(r.shards))
	copy(out, r.shards)
	return out
}

// Manifest loads the corpus manifest.
func (r *Reader) Manifest() (*Manifest, error) {
	return LoadManifest(r.dir)
}

// Episodes lists every stored episode across all shards, in shard then
// insertion order.
func (r *Reader) Episodes(ctx context.Context) ([]EpisodeRef, error) {
	var refs []EpisodeRef
	for _, path := range r.shards {
		err := r.withShard(ctx, path, func(db *sql.DB) error {
			rows, err := db.QueryContext(ctx, "SELECT "+episodeColumns+" FROM episodes ORDER BY id")
			if err != nil {
				return fmt.Errorf("query episodes: %w", err)
			}
			defer rows.Close()
			for rows.Next() {
				ref, err := scanEpisodeRef(rows, path)
				if err != nil {
					return err
				}
				refs = append(refs, ref)
			}
			return rows.Err()
		})
		if err != nil {
			return nil, err
		}
	}
	return refs, nil
}

// LoadEpisode loads one episode back in full, including step rasters and
// the exact state and action bit patterns that were appended.
func (r *Reader) LoadEpisode(ctx context.Context, ref EpisodeRef) (*Episode, error) {
	var ep *Episode
	err := r.withShard(ctx, ref.Shard, func(db *sql.DB) error {
		row := db.QueryRowContext(ctx, "SELECT "+episodeColumns+" FROM episodes WHERE id = ?", ref.Row)
		meta, err := scanEpisodeRef(row, ref.Shard)
		if errors.Is(err, sql.ErrNoRows) {
			return services.Wrap(services.ErrNotFound, "dataset", "load", fmt.Sprintf("episode row %d not in %s", ref.Row, ref.Shard), err)
		}
		if err != nil {
			return err
		}

		ep = &Episode{
			ID:              meta.EpisodeID,
			TaskName:        meta.TaskName,
			Instruction:     meta.Instruction,
			Classification:  meta.Classification,
			TaskSuccess:     meta.TaskSuccess,
			DurationSeconds: meta.DurationSeconds,
			SourcePath:      meta.SourcePath,
			ImageSize:       meta.ImageSize,
			CreatedAt:       meta.CreatedAt,
		}

		rows, err := db.QueryContext(ctx,
			`SELECT step_index, image, placeholder, capture_offset_ms, state, action,
                    reward, discount, is_first, is_last, is_terminal
             FROM steps WHERE episode_ref = ? ORDER BY step_index`, ref.Row)
		if err != nil {
			return fmt.Errorf("query steps: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				step                      Step
				placeholder               int
				stateBlob, actionBlob     []byte
				reward, discount          float64
				isFirst, isLast, terminal int
			)
			if err := rows.Scan(
				&step.Index,
				&step.Image,
				&placeholder,
				&step.OffsetMS,
				&stateBlob,
				&actionBlob,
				&reward,
				&discount,
				&isFirst,
				&isLast,
				&terminal,
			); err != nil {
				return fmt.Errorf("scan step: %w", err)
			}
			if step.State, err = vectorFromBlob(stateBlob); err != nil {
				return fmt.Errorf("step %d state: %w", step.Index, err)
			}
			if step.Action, err = vectorFromBlob(actionBlob); err != nil {
				return fmt.Errorf("step %d action: %w", step.Index, err)
			}
			step.Placeholder = placeholder != 0
			step.Reward = float32(reward)
			step.Discount = float32(discount)
			step.IsFirst = isFirst != 0
			step.IsLast = isLast != 0
			step.IsTerminal = terminal != 0
			ep.Steps = append(ep.Steps, step)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return ep, nil
}

func (r *Reader) withShard(ctx context.Context, path string, fn func(*sql.DB) error) error {
	if _, err := os.Stat(path); err != nil {
		return services.Wrap(services.ErrNotFound, "dataset", "load", fmt.Sprintf("shard %s missing", path), err)
	}
	db, err := openShardDB(path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	if err := checkShardSchema(ctx, db, path); err != nil {
		return err
	}
	return fn(db)
}

func scanEpisodeRef(scanner interface{ Scan(dest ...any) error }, shardPath string) (EpisodeRef, error) {
	var (
		ref         EpisodeRef
		success     int
		sourcePath  sql.NullString
		createdRaw  string
		classString string
	)
	if err := scanner.Scan(
		&ref.Row,
		&ref.EpisodeID,
		&ref.TaskName,
		&ref.Instruction,
		&classString,
		&success,
		&ref.DurationSeconds,
		&sourcePath,
		&ref.ImageSize,
		&ref.StepCount,
		&ref.PlaceholderSteps,
		&createdRaw,
	); err != nil {
		return EpisodeRef{}, err
	}
	ref.Shard = shardPath
	ref.Classification = classify.Class(classString)
	ref.TaskSuccess = success != 0
	ref.SourcePath = sourcePath.String
	if created, err := parseTimeString(createdRaw); err == nil {
		ref.CreatedAt = created
	}
	return ref, nil
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
