// Package notifier delivers tracker milestone messages via pluggable sinks.
//
// The default implementation publishes to ntfy using the server configured in
// config.toml, treating the per-submission destination as the topic, and
// gracefully degrades to a no-op when notifications are disabled. Delivery
// failures are the caller's to log and swallow; a lost notification never
// re-opens a finished submission.
package notifier
