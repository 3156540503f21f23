package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "socialnet-test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracing_StdoutExporter(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{
		ServiceName:  "socialnet-test",
		Enabled:      true,
		Exporter:     "stdout",
		SamplerRatio: 1,
	})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestStartSpan_RecordsError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := Tracer
	Tracer = tp.Tracer("test")
	t.Cleanup(func() { Tracer = prev })

	_, end := StartSpan(context.Background(), "plan.refresh", attribute.String("user.id", "u_1"))
	end(errors.New("boom"))
	_, end = StartSpan(context.Background(), "chat.get_or_create")
	end(nil)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "plan.refresh", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.String("user.id", "u_1"))
	assert.Equal(t, codes.Unset, spans[1].Status().Code)
}
