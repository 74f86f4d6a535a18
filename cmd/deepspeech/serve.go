package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/born-ml/deepspeech/internal/bus"
	"github.com/born-ml/deepspeech/internal/config"
	"github.com/born-ml/deepspeech/internal/service"
	"github.com/born-ml/deepspeech/internal/telemetry"
)

type healthChecker interface {
	Healthy() bool
}

func runServe(args []string, stdout, stderr io.Writer) error {
	fs, configPath := newFlagSet("serve", stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger, err := telemetry.NewLogger(stdout, cfg.Telemetry)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("serve exited with error", telemetry.Err(err))
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	provider, err := telemetry.Setup(ctx, cfg, version, os.Stderr, logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", telemetry.Err(err))
		}
	}()

	embedded, err := bus.StartEmbedded(cfg.Bus, logger)
	if err != nil {
		return err
	}
	defer embedded.Shutdown()
	if embedded != nil {
		cfg.Bus.Servers = []string{embedded.ClientURL()}
	}

	client, err := bus.Connect(ctx, cfg.Bus, cfg.ServiceName, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	backend := newBackend(cfg)
	model, err := loadModel(cfg, backend)
	if err != nil {
		return err
	}
	logger.Info("model ready",
		slog.Int("parameters", model.NumParameters()),
		slog.Int("n_class", model.Config().NClass),
		slog.String("backend", backend.Name()))

	opts := service.OptionsFromConfig(cfg)
	opts.MeterProvider = provider.MeterProvider
	opts.TracerProvider = provider.TracerProvider
	svc, err := service.New(model, backend, client.Conn(), opts, logger)
	if err != nil {
		return err
	}
	if err := svc.Start(); err != nil {
		return err
	}
	defer svc.Close()

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Bind, cfg.HTTP.Port),
		Handler:           newMux(provider.MetricsHandler, client, svc),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server started", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("stopping")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown error", telemetry.Err(err))
		}
		return nil
	})
	return g.Wait()
}

func newMux(metrics http.Handler, checks ...healthChecker) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		for _, c := range checks {
			if !c.Healthy() {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("not ready"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	return mux
}
