// Package dispatch runs pipeline jobs on a bounded worker pool.
//
// Startup drains and watch notifications both submit through the same
// Dispatcher. A registry of in-flight file names guarded by a mutex drops a
// submission when the same name is already queued or running, so one file is
// never orchestrated twice at once. Each job gets a fresh job id in its
// context for log correlation.
package dispatch
