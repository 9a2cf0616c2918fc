// Package pipeline orchestrates a dataset run: it discovers recorded
// traces, matches camera frames to control samples, encodes episodes,
// and publishes the per-corpus shards.
//
// One run holds an exclusive lock on the dataset directory. Episodes
// are processed by a worker pool sized from the configuration; shard
// writes go through per-corpus writers that publish atomically when
// the run finalizes. Per-episode failures exclude that episode and are
// reported, they never abort the run.
package pipeline
