// Package daemon runs the long-lived directory watch loop.
//
// Run takes a flock-based lock in the working folder so only one watcher
// services a folder at a time, creates the six role folders, and starts the
// compression worker pool. Files already waiting in the compression input are
// drained through the pool before the loop begins; after that every PDF that
// lands in the compression input is queued, and every PDF that lands in the
// merge input is announced with the running count of files waiting.
//
// Merges only happen on an explicit trigger: the startup merge (when enabled)
// or the operator entering m at the prompt. Entering q ends the loop.
//
// Keep orchestration here. The per-file and per-batch policies live in the
// compress and merge packages.
package daemon
