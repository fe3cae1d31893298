package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/audioforge/ttsgate/internal/api"
	"github.com/audioforge/ttsgate/internal/audit"
	"github.com/audioforge/ttsgate/internal/config"
	"github.com/audioforge/ttsgate/internal/database"
	"github.com/audioforge/ttsgate/internal/events"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx := context.Background()

	// Database connection (optional — usage tracking is off without it)
	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Warn("database unavailable, usage tracking disabled", "error", err)
	} else {
		defer db.Close()

		if err := audit.EnsureSchema(ctx, db); err != nil {
			slog.Warn("audit schema setup failed", "error", err)
		}
	}

	// Redis backs the response cache and the job store
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, caching and async jobs degraded", "error", err)
	}
	defer rdb.Close()

	// NATS connection (optional — synthesis events are off without it)
	var publisher *events.Publisher
	if cfg.Nats.URL != "" {
		publisher, err = events.Connect(cfg.Nats.URL)
		if err != nil {
			slog.Warn("nats unavailable, event publishing disabled", "error", err)
			publisher = nil
		} else {
			defer publisher.Close()
		}
	}

	// Setup router
	router := api.NewRouter(db, rdb, cfg, publisher)
	handler := router.Setup()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server", "addr", cfg.Addr(), "default_provider", cfg.TTS.DefaultProvider)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}
