package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_Levels(t *testing.T) {
	assert.True(t, New("debug", "json").Core().Enabled(zapcore.DebugLevel))
	assert.False(t, New("warn", "console").Core().Enabled(zapcore.InfoLevel))
	assert.True(t, New("bogus", "json").Core().Enabled(zapcore.InfoLevel))
	assert.False(t, New("bogus", "json").Core().Enabled(zapcore.DebugLevel))
}

func TestContextLogger_AddsIDs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cl := NewContextLogger(zap.New(core))

	ctx := WithUserID(WithRequestID(context.Background(), "req-1"), "ana")
	cl.LogRequest(ctx, "POST", "/api/v1/wallet/buy", 200, 15*time.Millisecond)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "ana", fields["user_id"])
	assert.Equal(t, int64(200), fields["status_code"])
	assert.Equal(t, int64(15), fields["duration_ms"])
}

func TestContextLogger_RequestLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cl := NewContextLogger(zap.New(core))

	cl.LogRequest(context.Background(), "GET", "/a", 200, 0)
	cl.LogRequest(context.Background(), "GET", "/b", 404, 0)
	cl.LogRequest(context.Background(), "GET", "/c", 503, 0)

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	_, hasRequestID := entries[0].ContextMap()["request_id"]
	assert.False(t, hasRequestID)
}

func TestContextLogger_LogError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cl := NewContextLogger(zap.New(core))

	cl.LogError(WithRequestID(context.Background(), "r"), errors.New("boom"), "save failed", zap.String("reason", "gift"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "save failed", entry.Message)
	assert.Equal(t, "boom", entry.ContextMap()["error"])
	assert.Equal(t, "gift", entry.ContextMap()["reason"])
}
