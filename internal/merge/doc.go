// Package merge concatenates the PDFs waiting in the merge input folder into
// one output file.
//
// A merge runs only when explicitly triggered and only when at least the
// configured minimum number of inputs are waiting. Every input is archived
// before Ghostscript runs. On success the inputs are removed; on any failure
// they stay where they are and no output is synthesized. Arrivals are
// announced with the current count but never start a merge on their own.
package merge
