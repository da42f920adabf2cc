package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"authgate/api/internal/cache"
	"authgate/api/internal/config"
	"authgate/api/internal/log"
	"authgate/api/internal/queue"
	"authgate/api/internal/storage"
	"authgate/api/internal/tasks"
)

// The auditor drains the denial stream written by the api into object
// storage.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	store, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := store.EnsureBucket(ctx); err != nil {
		logger.Fatal().Err(err).Str("bucket", store.Bucket()).Msg("ensure bucket failed")
	}

	consumer := queue.NewConsumer(
		client,
		cfg.Audit.Stream,
		cfg.Audit.Group,
		cfg.Audit.Consumer,
		cfg.Audit.ClaimInterval,
		logger,
		tasks.NewArchiver(store, logger),
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatal().Err(err).Msg("consumer stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		logger.Warn().Msg("consumer did not stop in time")
	}
}
