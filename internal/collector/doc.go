// Package collector implements the capture-side HTTP service. A phone or
// other capture client polls /api/poll for start/end commands, posts frames
// to /api/upload, and operators drive recordings through /api/command.
//
// Stored frames use the exact layout the conversion pipeline indexes:
// <data_dir>/<task>/<capture-ms>.jpg plus a JSON sidecar carrying the
// capture timestamp in fractional seconds.
package collector
