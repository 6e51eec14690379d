// Package compress moves single PDFs from the compression input folder to the
// output folder through Ghostscript.
//
// Every input is copied to the archive folder before the tool runs. When the
// tool refuses a password-protected file, produces nothing, or fails to bring
// the size under the effectiveness threshold, the archived original is copied
// over the output instead, so each input always yields a readable output. The
// input is removed once an output is in place. Process never fails across its
// boundary: errors and panics become a Failed outcome that is logged,
// notified, and recorded.
package compress
