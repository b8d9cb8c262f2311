// Package config loads, normalizes, and validates bayloe configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the BAYLOE_CONFIG environment
// fallback. The Config type centralizes the knobs the converter pipeline
// needs: output/staging locations, retry and pacing policy, and the decoder
// sandbox recycle limits.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
