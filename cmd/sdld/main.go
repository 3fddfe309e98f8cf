// cmd/sdld/main.go
// Package main implements the entry point for the SDL validation
// service. It wires the validation engine, report store, event
// publisher, and HTTP server, and handles graceful shutdown.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Link-Genetic-Inc/pdf-sdl/internal/config"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/event"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/fetch"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/reportstore"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/schemacheck"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/server"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/telemetry"
	"github.com/Link-Genetic-Inc/pdf-sdl/internal/validate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if cfg.Env == "dev" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	_, err = telemetry.InitTracer("sdl-service")
	if err != nil {
		logger.Error("failed to initialize OpenTelemetry tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		telemetry.ShutdownTracer(ctx)
	}()

	// Report store: PostgreSQL in production, in-memory otherwise.
	var store reportstore.Store
	if cfg.DatabaseDSN != "" {
		store, err = reportstore.NewPostgres(cfg.DatabaseDSN)
		if err != nil {
			logger.Error("failed to initialize postgres report store", "error", err)
			os.Exit(1)
		}
	} else {
		store = reportstore.NewMemory()
	}
	store = reportstore.WithMetrics(store)
	defer store.Close()

	pub := event.NewPublisher(cfg.NATSURL)
	defer pub.Close()

	// Content fetcher: http(s) always, s3 when configured.
	fetcher := fetch.NewRouter()
	httpFetcher := fetch.NewHTTPFetcher(cfg.FetchTimeout)
	fetcher.Register("http", httpFetcher)
	fetcher.Register("https", httpFetcher)
	if cfg.S3Endpoint != "" {
		s3Fetcher, err := fetch.NewS3Fetcher(context.Background(),
			cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey)
		if err != nil {
			logger.Error("failed to initialize S3 fetcher", "error", err)
			os.Exit(1)
		}
		fetcher.Register("s3", s3Fetcher)
	}

	checker := schemacheck.New(cfg.SchemaCacheDir, cfg.FetchTimeout)

	rectPolicy := validate.RectPolicyError
	if cfg.RectPolicy == "clamp" {
		rectPolicy = validate.RectPolicyClamp
	}
	engine := validate.New(checker, nil, fetcher, validate.Options{
		Workers:    cfg.Workers,
		RectPolicy: rectPolicy,
	})

	mux := server.NewMux(store, pub, engine, nil, cfg.JWTIssuer, cfg.JWTAudience)

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited")
}
