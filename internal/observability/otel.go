// Package observability wires OpenTelemetry tracing for the dispute API.
// Spans are exported over OTLP/gRPC; the sampler is parent-based so traces
// started by upstream gateways keep their sampling decision.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"google.golang.org/grpc/credentials"

	"github.com/tbourn/go-dispute-backend/internal/config"
)

// Indirections for the constructors with external side effects, swapped out
// by tests.
var (
	newOTLPClient = otlptracegrpc.NewClient

	newExporterFn = func(ctx context.Context, client otlptrace.Client) (*otlptrace.Exporter, error) {
		return otlptrace.New(ctx, client)
	}

	newResourceFn = func(ctx context.Context, serviceName, version string) (*resource.Resource, error) {
		return resource.New(ctx, resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		))
	}
)

func clientOptions(cfg config.OTELConfig) []otlptracegrpc.Option {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		return append(opts, otlptracegrpc.WithInsecure())
	}
	return append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
}

// SetupOTel installs the global tracer provider and propagators and returns
// the provider's shutdown function. When tracing is disabled it returns a
// no-op shutdown and leaves the globals alone. On any setup error the
// globals are also left untouched.
func SetupOTel(ctx context.Context, cfg config.OTELConfig, version string) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	exp, err := newExporterFn(ctx, newOTLPClient(clientOptions(cfg)...))
	if err != nil {
		return nil, err
	}
	res, err := newResourceFn(ctx, cfg.ServiceName, version)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	return tp.Shutdown, nil
}
