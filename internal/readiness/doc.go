// Package readiness decides when a file dropped into a watched folder has
// finished arriving.
//
// A file is ready once no process holds it open for writing, an exclusive
// non-blocking lock can be taken on it, and it is non-empty. Open writers are
// found by scanning /proc for a write-mode descriptor on the same inode, which
// catches producers that never lock. Where /proc is hidden or missing, the
// settle check in WaitUntilReady still waits for size and modification time
// to stop changing. Waits honour context cancellation and an optional
// timeout; a file that disappears mid-wait ends the wait with ErrNotFound.
package readiness
