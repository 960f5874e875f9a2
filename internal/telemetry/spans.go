package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "assetsync"

// StartWalkSpan starts a span for one walk or single-entity sync.
func StartWalkSpan(ctx context.Context, runID, root, policy string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "walk",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("walk.root", root),
			attribute.String("walk.policy", policy),
		),
	)
}

// StartUpsertSpan starts a span for the upsert of one entity.
func StartUpsertSpan(ctx context.Context, entityType, path, site string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "upsert",
		trace.WithAttributes(
			attribute.String("entity.type", entityType),
			attribute.String("entity.path", path),
			attribute.String("entity.site", site),
		),
	)
}

// EndSpan records the outcome on span and ends it.
func EndSpan(span trace.Span, outcome string, err error) {
	if outcome != "" {
		span.SetAttributes(attribute.String("sync.outcome", outcome))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
