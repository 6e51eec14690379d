// Package config loads, normalizes, and validates pdfwhacker configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PDFWHACKER_GHOSTSCRIPT. The Config type centralizes every knob the watcher
// and CLI need, and Layout resolves the six role folders (input, original,
// and output for both the compression and merge pipelines) in one place so no
// other package builds those paths by hand.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
