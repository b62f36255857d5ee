package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flixfinder/flixfinder/internal/env"
	"github.com/flixfinder/flixfinder/internal/handlers"
	"github.com/flixfinder/flixfinder/internal/logger"
	"github.com/flixfinder/flixfinder/internal/metrics"
	"github.com/flixfinder/flixfinder/internal/tmdb"
	"github.com/flixfinder/flixfinder/internal/web"

	_ "github.com/joho/godotenv/autoload"
)

const (
	defaultPort      = "8080"
	defaultImageBase = "https://image.tmdb.org/t/p/w342"
)

func main() {
	level := slog.LevelDebug
	if env.IsProduction() {
		level = slog.LevelInfo
	}
	slog.SetDefault(logger.New(level))

	if err := run(); err != nil {
		fmt.Println("Error:", err.Error())
		os.Exit(1)
	}
}

func run() error {
	apiKey := os.Getenv("TMDB_API_KEY")
	if apiKey == "" {
		return errors.New("TMDB_API_KEY is required")
	}

	app, err := handlers.New(&handlers.Config{
		TMDB:      tmdb.New(apiKey, os.Getenv("TMDB_API_READ_TOKEN")),
		Logger:    slog.Default(),
		ImageBase: envOr("TMDB_IMAGE_BASE", defaultImageBase),
		Region:    envOr("WATCH_REGION", "US"),
	})
	if err != nil {
		return fmt.Errorf("failed to init handlers: %w", err)
	}

	prefetchCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := app.Prefetch(prefetchCtx); err != nil {
		slog.Warn("vocabulary prefetch failed", logger.Error(err))
	}
	cancel()

	registry := prometheus.NewRegistry()
	metrics.Register(registry)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(httplog.RequestLogger(slog.Default(), &httplog.Options{
		Level:         slog.LevelInfo,
		RecoverPanics: false,
	}))
	if !env.IsProduction() {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(handlers.MiddlewareMetrics)
		app.RegisterRoutes(r)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	dist, err := web.Dist()
	if err != nil {
		return fmt.Errorf("failed to open embedded frontend: %w", err)
	}
	spa, err := handlers.SPA(dist)
	if err != nil {
		return fmt.Errorf("failed to build spa handler: %w", err)
	}
	r.NotFound(spa.ServeHTTP)

	addr := ":" + envOr("PORT", defaultPort)
	slog.Info("listening", slog.String("addr", addr))
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
