package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"school-results-db/internal/config"
	"school-results-db/internal/logger"
	"school-results-db/internal/queue"
	"school-results-db/internal/storage"
	"school-results-db/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get()

	if !cfg.ArchiveEnabled() {
		log.Fatal().Msg("Cleanup worker requires storage.s3.bucket")
	}

	log.Info().Str("version", cfg.App.Version).Msg("Starting cleanup worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisClient, err := queue.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	s3Storage, err := storage.NewS3Storage(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize S3 storage")
	}

	consumer := queue.NewConsumer(redisClient, cfg.Redis.CleanupQueue, cfg.Redis.DLQSuffix)
	cleanupWorker := worker.NewCleanupWorker(s3Storage, consumer, cfg.Workers.Cleanup.Count, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := cleanupWorker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Cleanup worker failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down cleanup worker...")

	cancel()
	<-done
	cleanupWorker.Stop()

	log.Info().Msg("Cleanup worker exited")
}
