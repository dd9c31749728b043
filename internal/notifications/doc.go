// Package notifications delivers maintenance events from dbqueued.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when no topic is set. Only sweep
// failures and the first successful sweep after a failure are published, so
// an hourly schedule does not flood the topic.
package notifications
