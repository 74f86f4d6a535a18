// Package service serves the acoustic model over NATS request/reply: each
// request carries a spectrogram batch and is answered with frame logits.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/born-ml/deepspeech/internal/config"
	"github.com/born-ml/deepspeech/internal/deepspeech"
	"github.com/born-ml/deepspeech/internal/protocol"
	"github.com/born-ml/deepspeech/internal/tensor"
)

// ErrInvalidRequest is returned for requests whose shape or payload does
// not fit the model.
var ErrInvalidRequest = errors.New("invalid score request")

// Options configures a Service. Zero providers fall back to the otel
// globals.
type Options struct {
	Subject        string
	Queue          string
	MaxBatch       int
	MaxFrames      int
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider
}

// OptionsFromConfig maps the bus and service sections to Options.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Subject:   cfg.Bus.Subject,
		Queue:     cfg.Bus.Queue,
		MaxBatch:  cfg.Service.MaxBatch,
		MaxFrames: cfg.Service.MaxFrames,
	}
}

// Service scores spectrograms with one model. Forward passes are
// serialized; run several services in one queue group to scale out.
type Service[B tensor.Backend] struct {
	opts    Options
	model   *deepspeech.SpeechRecognitionModel[B]
	backend B
	conn    *nats.Conn
	log     *slog.Logger
	tracer  trace.Tracer
	metrics *metrics

	mu  sync.Mutex // guards model
	sub *nats.Subscription
}

// New wraps model for serving and switches it to evaluation mode.
func New[B tensor.Backend](model *deepspeech.SpeechRecognitionModel[B], backend B, conn *nats.Conn, opts Options, log *slog.Logger) (*Service[B], error) {
	if opts.Subject == "" {
		opts.Subject = protocol.SubjectScore
	}
	if opts.MeterProvider == nil {
		opts.MeterProvider = otel.GetMeterProvider()
	}
	if opts.TracerProvider == nil {
		opts.TracerProvider = otel.GetTracerProvider()
	}

	m, err := newMetrics(opts.MeterProvider)
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}

	model.Eval()
	return &Service[B]{
		opts:    opts,
		model:   model,
		backend: backend,
		conn:    conn,
		log:     log,
		tracer:  opts.TracerProvider.Tracer(instrumentationName),
		metrics: m,
	}, nil
}

// Start subscribes to the request subject in the configured queue group.
func (s *Service[B]) Start() error {
	sub, err := s.conn.QueueSubscribe(s.opts.Subject, s.opts.Queue, s.handle)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.opts.Subject, err)
	}
	s.sub = sub
	s.log.Info("scoring service started",
		slog.String("subject", s.opts.Subject),
		slog.String("queue", s.opts.Queue))
	return nil
}

// Close drains the subscription; in-flight requests finish first.
func (s *Service[B]) Close() {
	if s.sub != nil {
		_ = s.sub.Drain()
	}
}

// Healthy reports whether the service is subscribed on a live connection.
func (s *Service[B]) Healthy() bool {
	return s.sub != nil && s.sub.IsValid() && s.conn.Status() == nats.CONNECTED
}

func (s *Service[B]) handle(msg *nats.Msg) {
	var req protocol.ScoreRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.log.Warn("failed to decode score request", slog.String("error", err.Error()))
		s.respond(msg, protocol.ScoreResponse{Error: fmt.Sprintf("%v: %v", ErrInvalidRequest, err)})
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	resp, err := s.Score(context.Background(), req)
	if err != nil {
		s.log.Warn("score request failed",
			slog.String("request_id", req.RequestID),
			slog.String("error", err.Error()))
		resp = protocol.ScoreResponse{RequestID: req.RequestID, Error: err.Error()}
	}
	s.respond(msg, resp)
}

func (s *Service[B]) respond(msg *nats.Msg, resp protocol.ScoreResponse) {
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		s.log.Warn("failed to marshal score response", slog.String("error", err.Error()))
		return
	}
	if err := msg.Respond(data); err != nil {
		s.log.Warn("failed to publish score response", slog.String("error", err.Error()))
	}
}

// Score validates req and runs the model on it.
func (s *Service[B]) Score(ctx context.Context, req protocol.ScoreRequest) (resp protocol.ScoreResponse, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "deepspeech.score",
		trace.WithAttributes(
			attribute.String("request.id", req.RequestID),
			attribute.IntSlice("input.shape", req.Shape)))
	defer func() {
		frames := 0
		if len(resp.Shape) == 3 {
			frames = resp.Shape[0] * resp.Shape[1]
		}
		s.metrics.record(ctx, start, frames, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.IntSlice("output.shape", resp.Shape))
		}
		span.End()
	}()

	if err := s.validate(req); err != nil {
		return protocol.ScoreResponse{}, err
	}

	x, err := tensor.FromSlice(req.Features, tensor.Shape(req.Shape), s.backend)
	if err != nil {
		return protocol.ScoreResponse{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	out, err := s.forward(x)
	if err != nil {
		return protocol.ScoreResponse{}, err
	}

	return protocol.ScoreResponse{
		RequestID: req.RequestID,
		Shape:     []int(out.Shape().Clone()),
		Logits:    out.Data(),
	}, nil
}

// forward runs the model under the lock and turns engine panics into errors.
func (s *Service[B]) forward(x *tensor.Tensor[float32, B]) (out *tensor.Tensor[float32, B], err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("forward pass failed: %v", r)
		}
	}()
	return s.model.Forward(x), nil
}

func (s *Service[B]) validate(req protocol.ScoreRequest) error {
	nFeats := s.model.Config().NFeats
	if len(req.Shape) != 4 || req.Shape[1] != 1 || req.Shape[2] != nFeats {
		return fmt.Errorf("%w: shape %v, want [batch, 1, %d, time]", ErrInvalidRequest, req.Shape, nFeats)
	}
	if b := req.Shape[0]; b < 1 || b > s.opts.MaxBatch {
		return fmt.Errorf("%w: batch %d outside [1, %d]", ErrInvalidRequest, b, s.opts.MaxBatch)
	}
	if t := req.Shape[3]; t < 1 || t > s.opts.MaxFrames {
		return fmt.Errorf("%w: %d frames outside [1, %d]", ErrInvalidRequest, t, s.opts.MaxFrames)
	}
	if n := req.NumElements(); len(req.Features) != n {
		return fmt.Errorf("%w: %d features for shape %v (want %d)", ErrInvalidRequest, len(req.Features), req.Shape, n)
	}
	return nil
}
