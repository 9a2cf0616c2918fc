// Package trace parses raw episode trace files into ordered sample
// sequences.
//
// A trace file is a JSON document with episode metadata and an array of
// timestamped pose readings. The loader tolerates individual malformed
// entries (they are dropped and counted) and re-sorts out-of-order samples,
// but refuses episodes that end up with no usable samples at all. Sample
// order after loading is the authoritative step order for the rest of the
// pipeline.
package trace
