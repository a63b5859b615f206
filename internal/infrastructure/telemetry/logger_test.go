package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func spanContext(t *testing.T) trace.SpanContext {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
}

func TestTracedHandlerAddsTraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&tracedHandler{inner: slog.NewJSONHandler(&buf, nil)})

	ctx := trace.ContextWithSpanContext(context.Background(), spanContext(t))
	logger.InfoContext(ctx, "claim scored", "claim_id", "CLM_1")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", record["trace_id"])
	assert.Equal(t, "0102030405060708", record["span_id"])
	assert.Equal(t, true, record["sampled"])
	assert.Equal(t, "CLM_1", record["claim_id"])
}

func TestTracedHandlerWithoutSpanOmitsTraceFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&tracedHandler{inner: slog.NewJSONHandler(&buf, nil)})

	logger.Info("detection run finished")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.NotContains(t, record, "trace_id")
	assert.NotContains(t, record, "span_id")
}

func TestTracedHandlerSurvivesWith(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&tracedHandler{inner: slog.NewJSONHandler(&buf, nil)}).
		With("component", "rings")

	ctx := trace.ContextWithSpanContext(context.Background(), spanContext(t))
	logger.InfoContext(ctx, "ring persisted")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "rings", record["component"])
	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", record["trace_id"])
}

func TestSetupLoggerLevels(t *testing.T) {
	tests := []struct {
		level   string
		debugOn bool
	}{
		{"debug", true},
		{"info", false},
		{"warn", false},
		{"nonsense", false}, // falls back to info
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, err := SetupLogger(tt.level)
			require.NoError(t, err)
			assert.Equal(t, tt.debugOn, logger.Enabled(context.Background(), slog.LevelDebug))
		})
	}
}
