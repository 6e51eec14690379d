// Package main hosts the pdfwhacker CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, builds the compression
// and merge pipelines, and either runs the long-lived watch loop or drives the
// same pipelines for one-shot compress and merge runs. Ledger inspection,
// environment checks, and configuration scaffolding sit alongside.
//
// Keep this package lean: add behaviour to the internal packages first, then
// surface it here.
package main
