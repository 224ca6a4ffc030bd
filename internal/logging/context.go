package logging

import (
	"context"
	"log/slog"

	"shortsync/internal/services"
)

// Structured field keys shared by every component.
const (
	FieldComponent     = "component"
	FieldJobID         = "job_id"
	FieldStage         = "stage"
	FieldCorrelationID = "correlation_id"
	FieldEventType     = "event_type"
	FieldErrorHint     = "error_hint"
	FieldImpact        = "impact"
)

// ContextFields returns the job, stage and batch identifiers carried by ctx,
// in that order, skipping any that are unset.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	lookups := []struct {
		key   string
		value func(context.Context) (string, bool)
	}{
		{FieldJobID, services.JobIDFromContext},
		{FieldStage, services.StageFromContext},
		{FieldCorrelationID, services.CorrelationIDFromContext},
	}
	var fields []slog.Attr
	for _, lookup := range lookups {
		if value, ok := lookup.value(ctx); ok {
			fields = append(fields, slog.String(lookup.key, value))
		}
	}
	return fields
}

// WithContext returns logger tagged with the identifiers in ctx. The logger
// is returned unchanged when ctx carries none.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
