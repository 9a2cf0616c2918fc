package trace

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"loom/internal/services"
)

type rawEpisode struct {
	Metadata rawMetadata `json:"metadata"`
	Trace    []rawSample `json:"trace"`
}

type rawMetadata struct {
	TaskName        string  `json:"task_name"`
	TaskSuccess     bool    `json:"task_success"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type rawSample struct {
	TimestampMS *float64  `json:"timestamp_ms"`
	Coords      []float64 `json:"coords"`
	Gripper     *float64  `json:"gripper_value"`
}

// LoadFile parses one raw trace file into an Episode. Samples missing
// required fields are dropped and counted rather than failing the episode;
// an episode left with no usable samples is rejected with an empty-episode
// error so the caller can exclude and report it.
func LoadFile(path string) (*Episode, Stats, error) {
	var stats Stats

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, stats, services.Wrap(services.ErrMalformedTrace, "trace", "read", "cannot read episode file", err)
	}

	var raw rawEpisode
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, stats, services.Wrap(services.ErrMalformedTrace, "trace", "parse", "episode file is not valid JSON", err)
	}

	id := episodeID(path)
	episode := &Episode{
		ID:              id,
		TaskName:        strings.TrimSpace(raw.Metadata.TaskName),
		TaskSuccess:     raw.Metadata.TaskSuccess,
		DurationSeconds: raw.Metadata.DurationSeconds,
		SourcePath:      path,
		Samples:         make([]Sample, 0, len(raw.Trace)),
	}
	if episode.TaskName == "" {
		episode.TaskName = id
	}

	stats.Parsed = len(raw.Trace)
	monotonic := true
	var prev int64
	for _, entry := range raw.Trace {
		sample, ok := buildSample(entry)
		if !ok {
			stats.Dropped++
			continue
		}
		if len(episode.Samples) > 0 && sample.TimestampMS < prev {
			monotonic = false
		}
		prev = sample.TimestampMS
		episode.Samples = append(episode.Samples, sample)
	}

	if len(episode.Samples) == 0 {
		return nil, stats, services.Wrap(services.ErrEmptyEpisode, "trace", "load", "no usable samples in "+filepath.Base(path), nil)
	}

	if !monotonic {
		stats.Resorted = true
		sort.SliceStable(episode.Samples, func(i, j int) bool {
			return episode.Samples[i].TimestampMS < episode.Samples[j].TimestampMS
		})
	}

	if episode.DurationSeconds <= 0 && len(episode.Samples) > 1 {
		span := episode.Samples[len(episode.Samples)-1].TimestampMS - episode.Samples[0].TimestampMS
		episode.DurationSeconds = float64(span) / 1000.0
	}

	return episode, stats, nil
}

func buildSample(entry rawSample) (Sample, bool) {
	if entry.TimestampMS == nil || len(entry.Coords) != 6 {
		return Sample{}, false
	}
	sample := Sample{TimestampMS: int64(*entry.TimestampMS)}
	copy(sample.Coords[:], entry.Coords)
	if entry.Gripper != nil {
		sample.Gripper = *entry.Gripper
	}
	return sample, true
}

func episodeID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
