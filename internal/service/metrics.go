package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/born-ml/deepspeech/internal/service"

type metrics struct {
	requests metric.Int64Counter
	errors   metric.Int64Counter
	duration metric.Float64Histogram
	frames   metric.Int64Counter
}

func newMetrics(mp metric.MeterProvider) (*metrics, error) {
	meter := mp.Meter(instrumentationName)

	requests, err := meter.Int64Counter("deepspeech.score.requests",
		metric.WithDescription("Scoring requests received"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}
	errs, err := meter.Int64Counter("deepspeech.score.errors",
		metric.WithDescription("Scoring requests that failed"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("deepspeech.score.duration",
		metric.WithDescription("Time spent scoring one request"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	frames, err := meter.Int64Counter("deepspeech.score.frames",
		metric.WithDescription("Output frames produced"),
		metric.WithUnit("{frame}"))
	if err != nil {
		return nil, err
	}

	return &metrics{
		requests: requests,
		errors:   errs,
		duration: duration,
		frames:   frames,
	}, nil
}

func (m *metrics) record(ctx context.Context, start time.Time, frames int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		m.errors.Add(ctx, 1)
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))

	m.requests.Add(ctx, 1, attrs)
	m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	if frames > 0 {
		m.frames.Add(ctx, int64(frames))
	}
}
