// Package history keeps a SQLite ledger of every compression and merge run.
//
// Each row records the job id, pipeline, outcome, input names, output path,
// byte counts and effective ratio. The ledger is append-only during normal
// operation; the CLI can list, summarise, prune, or clear it. A nil *Store is
// valid and discards writes, so callers do not branch on whether history is
// enabled. Schema changes bump schemaVersion in schema.go; users clear the
// database to adopt the new schema.
package history
