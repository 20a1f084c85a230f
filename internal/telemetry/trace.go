package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/security-union/codemuse"

// Tracer returns t, or a noop tracer when t is nil
func Tracer(t trace.Tracer) trace.Tracer {
	if t == nil {
		return noop.NewTracerProvider().Tracer(instrumentationName)
	}
	return t
}

// StartRunSpan creates the root span of a run.
//
// Usage:
//
//	ctx, span := telemetry.StartRunSpan(ctx, tracer, runID, "steps", "revtool")
//	defer span.End()
func StartRunSpan(ctx context.Context, t trace.Tracer, runID, variant, project string) (context.Context, trace.Span) {
	ctx, span := Tracer(t).Start(ctx, "codemuse.run")
	span.SetAttributes(
		attribute.String("run_id", runID),
		attribute.String("variant", variant),
		attribute.String("project", project),
	)
	return ctx, span
}

// StartGenerateSpan creates a span for the backend request
func StartGenerateSpan(ctx context.Context, t trace.Tracer, backend, model string) (context.Context, trace.Span) {
	ctx, span := Tracer(t).Start(ctx, "provider.generate", trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("provider", backend),
		attribute.String("model", model),
		attribute.String("component", "provider"),
	)
	return ctx, span
}

// StartStepSpan creates a span for one proposed step, from the question
// to the operator until the command exits
func StartStepSpan(ctx context.Context, t trace.Tracer, number, total int) (context.Context, trace.Span) {
	ctx, span := Tracer(t).Start(ctx, "step")
	span.SetAttributes(
		attribute.Int("step_number", number),
		attribute.Int("total_steps", total),
	)
	return ctx, span
}

// RecordSuccess marks a span as successful with optional result attributes
func RecordSuccess(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
	span.SetStatus(codes.Ok, "")
}

// RecordError records an error in a span and sets error status.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.Bool("error", true))
}
