// Package dataset encodes matched episodes into their training-ready form
// and owns the on-disk corpus format.
//
// A corpus is a directory of append-only SQLite shard files plus a JSON
// manifest. Writers fill shards up to a configured episode count and keep
// every shard of a run at a .tmp path until Finalize renames them into
// place, so an aborted run never leaves a partially written shard visible.
// Readers open only published shards and hand back exact step arrays, which
// is what the downstream fixed-shape consumers and the round-trip tests
// rely on.
package dataset
