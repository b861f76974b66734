package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"info":    slog.LevelInfo,
		"TRACE":   LevelTrace,
		" debug ": slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLogLevel("loud")
	assert.ErrorContains(t, err, `unknown log level "loud"`)
}

func TestInitLogger_TraceCorrelation(t *testing.T) {
	var buf bytes.Buffer
	logger := InitLogger(&buf, LevelTrace)

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	logger.Log(ctx, LevelTrace, "prompt built", "chars", 42)
	span.End()

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "TRACE", line["level"])
	assert.Equal(t, "prompt built", line["msg"])
	assert.Equal(t, span.SpanContext().TraceID().String(), line["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), line["span_id"])
}

func TestInitLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := InitLogger(&buf, slog.LevelWarn)

	logger.Info("hidden")
	logger.Debug("hidden")

	assert.Empty(t, buf.String())
}
