// Package imageindex enumerates per-episode image assets and extracts each
// image's capture time.
//
// Capture clients tag frames two ways: a JSON sidecar next to the image
// carrying fractional Unix seconds, or millisecond digits embedded at the
// start of the filename. The indexer prefers sidecars, falls back to
// filenames, and skips (and counts) images with neither. Output is ordered
// by capture time so the distribution matcher can treat it as a monotone
// stream.
package imageindex
