// Package telemetry wires structured logging, OpenTelemetry metrics with a
// Prometheus scrape endpoint and OpenTelemetry tracing.
package telemetry

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/born-ml/deepspeech/internal/config"
)

// NewLogger builds a slog logger writing to w in the configured format.
func NewLogger(w io.Writer, cfg config.TelemetryConfig) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	switch cfg.LogFormat {
	case "", "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.LogFormat)
	}
}

// ParseLevel maps debug|info|warn|error to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// Err formats an error as a structured attribute.
func Err(err error) slog.Attr {
	return slog.String("error", err.Error())
}
