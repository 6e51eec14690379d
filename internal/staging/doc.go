// Package staging removes temporary files orphaned by interrupted
// copy-replace operations in the role folders.
package staging
