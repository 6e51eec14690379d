// Package watcher wraps fsnotify to report *.pdf files created in a set of
// directories. Only creation events are forwarded; directories and hidden
// staging files are ignored. Readiness is not checked here.
package watcher
