package operations

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"finops/internal/infrastructure"
)

const (
	TracerName = "finops.operations"
)

// OperationTracer provides OpenTelemetry spans and metrics for pipeline runs
type OperationTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.BusinessMetrics
}

// NewOperationTracer creates a tracer. With nil providers spans go to the
// global tracer provider and no metrics are recorded.
func NewOperationTracer(providers *infrastructure.OTelProviders) (*OperationTracer, error) {
	pt := &OperationTracer{tracer: otel.Tracer(TracerName)}
	if providers == nil {
		return pt, nil
	}
	if providers.Tracer != nil {
		pt.tracer = providers.Tracer
	}
	if providers.Meter != nil {
		metrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
		if err != nil {
			return nil, fmt.Errorf("failed to create business metrics: %w", err)
		}
		pt.metrics = metrics
	}
	return pt, nil
}

// TraceOperationExecution starts the span covering a whole run
func (pt *OperationTracer) TraceOperationExecution(ctx context.Context, operationID, pipeline string) (context.Context, trace.Span) {
	ctx, span := pt.tracer.Start(ctx, "pipeline."+pipeline,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.String("pipeline", pipeline),
		),
	)
	if pt.metrics != nil {
		pt.metrics.PipelineActiveRuns.Add(ctx, 1,
			metric.WithAttributes(attribute.String("pipeline", pipeline)))
	}
	return ctx, span
}

// RecordOperationCompletion closes the run span and records run metrics
func (pt *OperationTracer) RecordOperationCompletion(ctx context.Context, span trace.Span, pipeline string, duration time.Duration, rows int, err error) {
	span.SetAttributes(
		attribute.Float64("pipeline.duration_seconds", duration.Seconds()),
		attribute.Int("pipeline.rows", rows),
	)
	if err != nil {
		infrastructure.RecordError(ctx, err)
	} else {
		span.SetStatus(codes.Ok, "pipeline completed")
	}

	if pt.metrics != nil {
		pt.metrics.PipelineActiveRuns.Add(ctx, -1,
			metric.WithAttributes(attribute.String("pipeline", pipeline)))
	}
	infrastructure.RecordPipelineMetrics(ctx, pt.metrics, pipeline, duration, err)
	span.End()
}

// TraceStageExecution starts the span of one step attempt
func (pt *OperationTracer) TraceStageExecution(ctx context.Context, operationID, stepID string, attempt int) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, "step."+stepID,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.String("step.id", stepID),
			attribute.Int("step.attempt", attempt),
		),
	)
}

// RecordStageCompletion closes a step span and records step metrics
func (pt *OperationTracer) RecordStageCompletion(ctx context.Context, span trace.Span, pipeline, stepID string, duration time.Duration, rows int, err error) {
	span.SetAttributes(
		attribute.Float64("step.duration_seconds", duration.Seconds()),
		attribute.Int("step.rows", rows),
	)
	if err != nil {
		infrastructure.RecordError(ctx, err)
	} else {
		span.SetStatus(codes.Ok, "step completed")
	}
	infrastructure.RecordStepMetrics(ctx, pt.metrics, pipeline, stepID, duration, rows, err)
	span.End()
}
