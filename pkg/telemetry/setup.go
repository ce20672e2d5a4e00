package telemetry

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

var ErrNoExporter = errors.New("no telemetry exporter configured")

// A simple helper that configures OpenTelemetry for the subscriber. The caller is responsible
// for shutting the returned provider down so that buffered spans get flushed.
func SetupTelemetry(ctx context.Context, config Config) (*tracesdk.TracerProvider, error) {
	res, err := NewResource(config)
	if err != nil {
		return nil, err
	}

	exp, err := NewExporter(ctx, config)
	if err != nil {
		return nil, err
	}

	tp := NewTracerProvider(exp, res)

	// Set the trace provider as the global trace provider.
	otel.SetTracerProvider(tp)

	// Context propagation for the OpenTelemetry SDK.
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp, nil
}

// Creates a trace provider that samples everything and exports in batches.
func NewTracerProvider(exp tracesdk.SpanExporter, res *resource.Resource) *tracesdk.TracerProvider {
	return tracesdk.NewTracerProvider(
		tracesdk.WithSampler(tracesdk.AlwaysSample()),
		tracesdk.WithBatcher(exp),
		tracesdk.WithResource(res),
	)
}

// Creates the OTLP exporter if configured, falls back to Jaeger otherwise.
func NewExporter(ctx context.Context, config Config) (tracesdk.SpanExporter, error) {
	switch {
	case config.OTLP.Host != "":
		options := []otlptracehttp.Option{otlptracehttp.WithEndpoint(config.OTLP.Host)}
		if !config.OTLP.Secure {
			options = append(options, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, options...)
	case config.JaegerURL != "":
		return jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(config.JaegerURL)))
	default:
		return nil, ErrNoExporter
	}
}

// Creates a new resource to identify the service instance.
func NewResource(config Config) (*resource.Resource, error) {
	name := config.Package
	if name == "" {
		name = PACKAGE
	}

	id := config.ID
	if id == "" {
		random, err := uuid.NewRandom()
		if err != nil {
			return nil, err
		}
		id = random.String()
	}

	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(name),
		attribute.String("ID", id),
	), nil
}
