// Package preflight provides readiness checks for the folders and services
// pdfwhacker depends on.
//
// These checks run in two contexts:
//   - The watch command calls RunAll after creating the role folders and
//     refuses to start when a folder is unusable.
//   - The CLI "pdfwhacker doctor" command renders every result, together
//     with the Ghostscript dependency status.
//
// The ntfy check only runs when a topic is configured.
package preflight
