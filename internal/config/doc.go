// Package config loads, normalizes, and validates dbqueue configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// DBQUEUE_REDIS_ADDR. The Config type centralizes every knob the CLI, the
// maintenance daemon, and embedded queue users need, so the store location,
// wake backend, and claim tuning are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
