package tracing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"inclusao/internal/platform/tracing"
)

func TestNoopTracer(t *testing.T) {
	ctx := context.Background()
	got, span := tracing.NewNoop().Start(ctx, tracing.SpanRegistrationIns, tracing.String("k", "v"))

	assert.Equal(t, ctx, got)
	require.NotNil(t, span)
	span.SetAttributes(tracing.Int("n", 1))
	span.AddEvent("ignored")
	span.End(errors.New("ignored"))
}

func TestOTelTracerRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tr := tracing.NewOTel(tracing.WithTracerProvider(tp))

	_, ok := tr.Start(context.Background(), tracing.SpanRegistrationLst, tracing.String(tracing.AttrBackend, "memory"))
	ok.SetAttributes(tracing.Int(tracing.AttrRowCount, 3))
	ok.End(nil)

	_, failed := tr.Start(context.Background(), tracing.SpanAuthSignIn)
	failed.End(errors.New("invalid login credentials"))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, tracing.SpanRegistrationLst, spans[0].Name())
	assert.Len(t, spans[0].Attributes(), 2)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "invalid login credentials", spans[1].Status().Description)
}

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := tracing.Setup(context.Background(), "inclusao", "")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
