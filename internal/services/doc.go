// Package services defines shared utilities consumed by the conversion
// pipeline and the collector.
//
// Key responsibilities:
//   - Context helpers that stamp episode identifiers, stage names, and run
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent exclusion reasons for the run report.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability, recovery) stays uniform across components.
package services
