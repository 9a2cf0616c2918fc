// Package logging centralizes slog construction and the structured-field
// conventions shared by the pipeline, collector, and CLI.
//
// New builds either a human-oriented console handler or a JSON handler from
// config-driven options, fanning output across stdout and the log file. The
// package also exposes attribute helpers, standardized field keys (component,
// episode_id, stage, run_id), and context plumbing so per-episode work is
// consistently tagged wherever it logs.
//
// Construct loggers here rather than calling slog directly so formats and
// field names stay uniform across the binary.
package logging
