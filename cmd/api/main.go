// Package main is the entry point for the Raincast web server.
//
// It loads the configuration, loads the model once, builds the HTTP server
// with the core chassis (middleware, routing, health checks) and the form and
// API handlers, and serves until SIGINT or SIGTERM.
//
// A model load failure does not stop the server unless MODEL_FAIL_FAST is
// set: the form then shows the load error and no prediction is offered.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"raincast/internal/api/handlers"
	"raincast/internal/bootstrap"
	"raincast/internal/config"
	"raincast/internal/core"
	"raincast/internal/i18n"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig(nil)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("raincast starting",
		"environment", cfg.Environment,
		"build", cfg.Build,
		"port", cfg.Server.Port,
		"model_backend", cfg.Model.Backend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := buildServer(ctx, cfg, logger)
	if err != nil {
		return err
	}

	return serve(ctx, srv, cfg, logger)
}

// buildServer loads the catalogs and the model and mounts every route.
func buildServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*core.Server, error) {
	languages, err := i18n.NewBundle(cfg.I18n.DefaultLanguage)
	if err != nil {
		return nil, fmt.Errorf("loading message catalogs: %w", err)
	}

	handle, probes := bootstrap.LoadModel(ctx, cfg, logger)
	if handle.Err() != nil && cfg.Model.FailFast {
		return nil, fmt.Errorf("loading model: %w", handle.Err())
	}

	srv, err := core.NewServer(cfg, languages, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}
	srv.HealthProbes = append(srv.HealthProbes, probes...)

	predictionHandler := handlers.NewPredictionHandler(handle, srv.Validator, languages, logger)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, predictionHandler.RegisterRoutes)

	pageHandler, err := handlers.NewPageHandler(handle, languages, logger)
	if err != nil {
		return nil, err
	}
	srv.RouteRegistrars = append(srv.RouteRegistrars, pageHandler.RegisterRoutes)

	srv.MountRoutes()
	return srv, nil
}

// serve runs the HTTP server until ctx is cancelled, then drains it within
// SHUTDOWN_TIMEOUT.
func serve(ctx context.Context, srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("initiating graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "error", err)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped cleanly")
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: false,
	})
	return slog.New(handler)
}
