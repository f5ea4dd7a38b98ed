package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := tracesdk.NewTracerProvider(tracesdk.WithSpanProcessor(recorder))

	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func attrMap(attrs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value, len(attrs))
	for _, kv := range attrs {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "giftcast", cfg.ServiceName)
	assert.Equal(t, "http://localhost:14268/api/traces", cfg.JaegerURL)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInit_Disabled(t *testing.T) {
	tp, err := Init(Config{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestTraceSnapshotOperation(t *testing.T) {
	recorder := withRecorder(t)

	ctx, span := TraceSnapshotOperation(context.Background(), "save", "redis")
	AddSpanAttributes(ctx, ReasonKey.String("gift"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "snapshot.save", spans[0].Name())
	attrs := attrMap(spans[0].Attributes())
	assert.Equal(t, "redis", attrs[BackendKey].AsString())
	assert.Equal(t, "gift", attrs[ReasonKey].AsString())
}

func TestTraceLedgerOperation(t *testing.T) {
	recorder := withRecorder(t)

	_, span := TraceLedgerOperation(context.Background(), "send_gift", "leo")
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "ledger.send_gift", spans[0].Name())
	assert.Equal(t, "leo", attrMap(spans[0].Attributes())[UserIDKey].AsString())
}

func TestRecordError(t *testing.T) {
	recorder := withRecorder(t)

	ctx, span := StartSpan(context.Background(), "test")
	RecordError(ctx, errors.New("store unreachable"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "store unreachable", spans[0].Status().Description)
}

func TestTraceLiveOperation(t *testing.T) {
	recorder := withRecorder(t)

	ctx, span := TraceLiveOperation(context.Background(), "send_gift", "grp_1")
	AddSpanAttributes(ctx, SessionIDKey.String("live_1"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "live.send_gift", spans[0].Name())
	attrs := attrMap(spans[0].Attributes())
	assert.Equal(t, "grp_1", attrs[GroupIDKey].AsString())
	assert.Equal(t, "live_1", attrs[SessionIDKey].AsString())
}

func TestTraceHTTPRequest(t *testing.T) {
	recorder := withRecorder(t)

	_, span := TraceHTTPRequest(context.Background(), "GET", "/api/v1/groups/:id/live")
	span.End()

	require.Len(t, recorder.Ended(), 1)
	assert.Equal(t, "http.GET", recorder.Ended()[0].Name())
}

func TestHelpers_NoRecordingSpan(t *testing.T) {
	ctx := context.Background()
	AddSpanAttributes(ctx, attribute.String("k", "v"))
	RecordError(ctx, errors.New("ignored"))
	SetSpanStatus(ctx, codes.Ok, "")
	assert.False(t, trace.SpanFromContext(ctx).IsRecording())
}
