package services

import "context"

type contextKey int

const (
	jobIDKey contextKey = iota
	stageKey
	correlationIDKey
)

// WithJobID annotates ctx with the render job identifier.
func WithJobID(ctx context.Context, id string) context.Context {
	return withValue(ctx, jobIDKey, id)
}

// JobIDFromContext extracts the render job identifier if present.
func JobIDFromContext(ctx context.Context) (string, bool) {
	return valueOf(ctx, jobIDKey)
}

// WithStage annotates ctx with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	return withValue(ctx, stageKey, stage)
}

func StageFromContext(ctx context.Context) (string, bool) {
	return valueOf(ctx, stageKey)
}

// WithCorrelationID annotates ctx with the identifier shared by every job of
// one batch.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return withValue(ctx, correlationIDKey, id)
}

func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	return valueOf(ctx, correlationIDKey)
}

// withValue leaves ctx untouched for blank values so an inner scope never
// erases an identifier set by an outer one.
func withValue(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func valueOf(ctx context.Context, key contextKey) (string, bool) {
	value, ok := ctx.Value(key).(string)
	return value, ok && value != ""
}
