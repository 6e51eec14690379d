// Package pdfinfo inspects PDF documents in-process with pdfcpu. The
// pipelines use it for diagnostics only: version and page counts are logged,
// and nothing here decides whether a transform succeeded.
package pdfinfo
