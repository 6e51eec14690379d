// Package notifications delivers pipeline events via ntfy.
//
// The default implementation publishes to the topic configured in
// config.toml and degrades to a no-op when notifications are disabled. Only
// events an operator would act on are sent: files delivered as originals
// because the tool failed or refused them, merge results, and unexpected
// errors.
package notifications
