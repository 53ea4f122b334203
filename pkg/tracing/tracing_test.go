package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestStartSpan_NoTracer(t *testing.T) {
	SetTracer(nil)

	ctx, span := StartSpan(context.Background(), "noop")
	defer span.End()

	assert.Empty(t, GetTraceID(ctx))
	assert.Empty(t, GetTraceParent(ctx))
}

func TestStartSpan_WithTracer(t *testing.T) {
	provider := sdktrace.NewTracerProvider()
	t.Cleanup(func() {
		SetTracer(nil)
		_ = provider.Shutdown(context.Background())
	})
	SetTracer(provider.Tracer("test"))

	ctx, span := StartSpan(context.Background(), "lookup")
	defer span.End()

	traceID := GetTraceID(ctx)
	require.Len(t, traceID, 32)
	assert.Len(t, GetSpanID(ctx), 16)
	assert.Contains(t, GetTraceParent(ctx), traceID)
}

func TestFail(t *testing.T) {
	provider := sdktrace.NewTracerProvider()
	t.Cleanup(func() {
		SetTracer(nil)
		_ = provider.Shutdown(context.Background())
	})
	SetTracer(provider.Tracer("test"))

	ctx, span := StartSpan(context.Background(), "crawl")
	defer span.End()

	assert.NotPanics(t, func() {
		Fail(ctx, nil)
		Fail(ctx, assert.AnError)
		Fail(context.Background(), assert.AnError)
	})
	assert.True(t, span.IsRecording())
}
