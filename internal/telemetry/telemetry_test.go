package telemetry

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"

	"github.com/born-ml/deepspeech/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, config.TelemetryConfig{LogLevel: "warn", LogFormat: "json"})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", slog.Int("frames", 150))
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), `"msg":"kept"`)
	assert.Contains(t, buf.String(), `"frames":150`)

	buf.Reset()
	logger, err = NewLogger(&buf, config.TelemetryConfig{LogLevel: "info", LogFormat: "text"})
	require.NoError(t, err)
	logger.Info("hello", slog.String("k", "v"))
	assert.Contains(t, buf.String(), "msg=hello k=v")

	_, err = NewLogger(&buf, config.TelemetryConfig{LogFormat: "xml"})
	assert.Error(t, err)
}

func TestSetup_MetricsEndpoint(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	p, err := Setup(ctx, cfg, "test", io.Discard, logger)
	require.NoError(t, err)
	defer func() { assert.NoError(t, p.Shutdown(ctx)) }()

	counter, err := p.MeterProvider.Meter("telemetry_test").Int64Counter("test_events",
		metric.WithDescription("events seen by the test"))
	require.NoError(t, err)
	counter.Add(ctx, 3)

	rec := httptest.NewRecorder()
	p.MetricsHandler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_events")
}

func TestSetup_StdoutTraces(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Telemetry.TraceExporter = "stdout"
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var out bytes.Buffer
	p, err := Setup(ctx, cfg, "test", &out, logger)
	require.NoError(t, err)

	_, span := p.TracerProvider.Tracer("telemetry_test").Start(ctx, "unit-span")
	span.End()

	require.NoError(t, p.Shutdown(ctx))
	assert.Contains(t, out.String(), "unit-span")

	// A second setup in the same process must not collide on registration.
	p2, err := Setup(ctx, config.Default(), "test", io.Discard, logger)
	require.NoError(t, err)
	assert.NoError(t, p2.Shutdown(ctx))
}

func TestErr(t *testing.T) {
	attr := Err(assert.AnError)
	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, assert.AnError.Error(), attr.Value.String())
}
