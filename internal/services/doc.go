// Package services defines shared utilities consumed by the pipelines and
// their external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, pipeline names, and file names for
//     logging and history records.
//   - Structured error markers plus the Wrap helper that keep failures
//     classifiable with errors.Is after they cross package boundaries.
//
// Tool wrappers live in subpackages (see services/ghostscript).
package services
