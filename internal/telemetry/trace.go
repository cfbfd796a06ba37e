package telemetry

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	serviceName    = "starfall"
	serviceVersion = "0.1.0"
)

// SetupTracing installs an OTLP/HTTP tracer provider configured from the
// standard OTEL_* environment variables.
//
// Postcondition: Returns a shutdown function to call on exit.
func SetupTracing(ctx context.Context) (func(context.Context) error, error) {
	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating otlp exporter: %w", err)
	}
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
			attribute.String("host.name", host),
			attribute.String("process.runtime.version", runtime.Version()),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("building otel resource: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return tp.Shutdown, nil
}

// Tracer returns a named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.GetTracerProvider().Tracer("starfall/" + name)
}

// NoopTracer returns a tracer that records nothing.
func NoopTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer("starfall/noop")
}

// TraceSink records each event as a zero-length span.
type TraceSink struct {
	tracer trace.Tracer
}

// NewTraceSink creates a TraceSink. A nil tracer uses NoopTracer.
func NewTraceSink(tracer trace.Tracer) *TraceSink {
	if tracer == nil {
		tracer = NoopTracer()
	}
	return &TraceSink{tracer: tracer}
}

// Emit implements Sink.
func (s *TraceSink) Emit(ctx context.Context, e Event) error {
	attrs := make([]attribute.KeyValue, 0, len(e.Payload))
	for k, v := range e.Payload {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprint(val)))
		}
	}
	_, span := s.tracer.Start(ctx, e.Name, trace.WithTimestamp(e.Time), trace.WithAttributes(attrs...))
	span.End(trace.WithTimestamp(e.Time))
	return nil
}
