package logging

import (
	"context"
	"log/slog"

	"docwatch/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldSubmissionID is the standardized structured logging key for submission identifiers.
	FieldSubmissionID = "submission_id"
	// FieldState is the standardized structured logging key for lifecycle state names.
	FieldState = "state"
	// FieldDocumentID is the standardized structured logging key for resolved upstream document IDs.
	FieldDocumentID = "document_id"
	// FieldEventType is the standardized structured logging key for machine-readable event names.
	FieldEventType = "event_type"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.SubmissionIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSubmissionID, id))
	}
	if state, ok := services.StateFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldState, state))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
