package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Tracer is the shared tracer for all instrumented operations.
var Tracer = otel.Tracer("rawlower")

// InitTracing wires the global tracer provider to an OTLP/gRPC collector.
// The returned function flushes and shuts the provider down; callers defer it.
// With an empty endpoint tracing stays on the default no-op provider.
func InitTracing(ctx context.Context, endpoint string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", "rawlower"),
		)),
	)
	otel.SetTracerProvider(provider)
	Tracer = provider.Tracer("rawlower")

	return provider.Shutdown, nil
}
