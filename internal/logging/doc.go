// Package logging builds the slog loggers used across docwatch.
//
// It centralizes level/format parsing, multi-destination output (stdout plus a
// log file under the configured log directory), standardized field names for
// submission tracking, and context-derived attributes so every component logs
// the same submission_id/state keys.
package logging
