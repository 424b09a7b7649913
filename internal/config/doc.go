// Package config loads, normalizes, and validates docwatch configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and validates external endpoints before the
// daemon starts. The Config type centralizes every knob the daemon and CLI
// need, so Paperless credentials, tracker budgets, and notification topics are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
