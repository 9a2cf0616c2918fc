// Package config loads, normalizes, and validates Loom configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// LOOM_NTFY_TOPIC. The Config type centralizes every knob the converter and
// collector need, so matcher thresholds, raster geometry, and service
// addresses are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
