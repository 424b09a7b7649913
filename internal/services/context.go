package services

import "context"

type contextKey string

const (
	submissionIDKey contextKey = "submission_id"
	stateKey        contextKey = "state"
	requestIDKey    contextKey = "request_id"
)

// WithSubmissionID annotates context with the tracked submission identifier.
func WithSubmissionID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, submissionIDKey, id)
}

// SubmissionIDFromContext extracts the submission identifier if present.
func SubmissionIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(submissionIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithState annotates context with the lifecycle state name.
func WithState(ctx context.Context, state string) context.Context {
	if state == "" {
		return ctx
	}
	return context.WithValue(ctx, stateKey, state)
}

// StateFromContext returns the lifecycle state name if present.
func StateFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stateKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
