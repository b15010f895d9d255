package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "planbridge"

// StartSyncSpan starts a span for a remote sync operation on behalf of
// a tenant.
func StartSyncSpan(ctx context.Context, operation, tenantID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, operation,
		trace.WithAttributes(
			attribute.String("sync.operation", operation),
			attribute.String("tenant.id", tenantID),
		),
	)
}

// StartTaskSpan starts a span for a mutation of a single remote task.
func StartTaskSpan(ctx context.Context, operation, tenantID, taskID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, operation,
		trace.WithAttributes(
			attribute.String("sync.operation", operation),
			attribute.String("tenant.id", tenantID),
			attribute.String("task.id", taskID),
		),
	)
}
