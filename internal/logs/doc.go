// Package logs reads the run log files written by pdfwhacker.
//
// Last returns the trailing lines of a log, and Follow polls for appended
// lines until its context ends, powering `pdfwhacker logs --follow`. Follow
// restarts from the top when the file shrinks, so it keeps up when a new
// watch run replaces the current-log link.
package logs
