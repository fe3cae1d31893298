package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/audioforge/ttsgate/internal/audit"
	"github.com/audioforge/ttsgate/internal/cache"
	"github.com/audioforge/ttsgate/internal/config"
	"github.com/audioforge/ttsgate/internal/database"
	"github.com/audioforge/ttsgate/internal/events"
	"github.com/audioforge/ttsgate/internal/jobs"
	"github.com/audioforge/ttsgate/internal/queue"
	"github.com/audioforge/ttsgate/internal/queue/workers"
	"github.com/audioforge/ttsgate/internal/tts"
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

	// Job state lives in redis alongside the asynq queues
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	store := jobs.NewStore(cache.NewCache(rdb, time.Hour), 0)

	// Database connection (optional — usage tracking is off without it)
	var auditSvc *audit.Service
	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Warn("database unavailable, usage tracking disabled", "error", err)
	} else {
		defer db.Close()
		auditSvc = audit.NewService(db)
	}

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

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	registry := queue.NewHandlersRegistry()

	// Register workers
	synthWorker := workers.NewSynthesizeWorker(tts.NewRegistryFromConfig(cfg), store, auditSvc, publisher)

	registry.Register(queue.TypeSynthesize, asynq.HandlerFunc(synthWorker.ProcessTask))

	slog.Info("starting worker", "concurrency", cfg.Worker.Concurrency, "default_provider", cfg.TTS.DefaultProvider)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
