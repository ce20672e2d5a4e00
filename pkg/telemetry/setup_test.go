package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/matrix-org/subscriber/pkg/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

func TestNewResource(t *testing.T) {
	res, err := telemetry.NewResource(telemetry.Config{ID: "instance-1"})
	require.NoError(t, err)

	attributes := res.Set()
	name, ok := attributes.Value(semconv.ServiceNameKey)
	require.True(t, ok)
	assert.Equal(t, telemetry.PACKAGE, name.AsString())

	id, ok := attributes.Value(attribute.Key("ID"))
	require.True(t, ok)
	assert.Equal(t, "instance-1", id.AsString())
}

func TestNewExporter_NothingConfigured(t *testing.T) {
	assert.False(t, telemetry.Config{}.Enabled())

	_, err := telemetry.NewExporter(context.Background(), telemetry.Config{})
	assert.ErrorIs(t, err, telemetry.ErrNoExporter)
}

func TestTelemetry_Spans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := tracesdk.NewTracerProvider(tracesdk.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	parent := telemetry.NewTelemetry(context.Background(), "subscribe", attribute.String("stream_id", "stream1"))
	child := parent.CreateChild("pull")
	child.Fail(errors.New("boom"))
	child.End()
	parent.AddEvent("answer applied")
	parent.End()

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "pull", spans[0].Name())
	assert.Equal(t, "subscribe", spans[1].Name())
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
	assert.Len(t, spans[1].Events(), 1)
}
