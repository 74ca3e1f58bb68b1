package config

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const serviceName = "notegrid-api"

// NewTracerProvider installs a global tracer provider whose spans are written
// to logger. The returned provider must be shut down on exit.
func NewTracerProvider(logger *log.Logger, version string) *sdktrace.TracerProvider {
	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", version),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(&LogExporter{Logger: logger}),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp
}

// LogExporter is a span exporter that emits one log entry per finished span.
type LogExporter struct {
	Logger *log.Logger
}

func (e *LogExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		fields := log.Fields{
			"trace_id":    span.SpanContext().TraceID().String(),
			"span_id":     span.SpanContext().SpanID().String(),
			"duration_ms": float64(span.EndTime().Sub(span.StartTime()).Microseconds()) / 1000,
			"status":      span.Status().Code.String(),
		}
		for _, kv := range span.Attributes() {
			fields[string(kv.Key)] = kv.Value.AsInterface()
		}
		e.Logger.WithFields(fields).Info(span.Name())
	}
	return nil
}

func (e *LogExporter) Shutdown(context.Context) error {
	return nil
}
