// Package services defines shared utilities consumed by the tracker state
// handlers and the external service clients.
//
// Key responsibilities:
//   - Context helpers that stamp submission IDs, lifecycle states, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (not-found vs transient vs configuration) without matching on
//     error strings.
//
// Use these helpers when wiring new upstream integrations so operational
// behaviour (error handling, observability, retries) stays uniform.
package services
