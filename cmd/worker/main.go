package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joshu-sajeev/hrqueue/internal/config"
	"github.com/joshu-sajeev/hrqueue/internal/otelsetup"
	"github.com/joshu-sajeev/hrqueue/internal/pool"
	"github.com/joshu-sajeev/hrqueue/internal/registry"
	"github.com/joshu-sajeev/hrqueue/internal/retry"
	"github.com/joshu-sajeev/hrqueue/internal/storage/postgres"
	"github.com/joshu-sajeev/hrqueue/internal/telemetry"
	"github.com/joshu-sajeev/hrqueue/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("worker exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWorkerConfig(ctx)
	if err != nil {
		return err
	}

	instanceID := uuid.NewString()

	sinks := telemetry.Multi{telemetry.NewLogSink(logger)}
	if cfg.OTelEnabled {
		shutdown, err := otelsetup.InitOTel(ctx, "hrqueue-worker", instanceID)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				logger.Warn("otel shutdown failed", "error", err)
			}
		}()

		otelSink, err := telemetry.NewOTelSink()
		if err != nil {
			return err
		}
		sinks = append(sinks, otelSink)
	}

	db, err := postgres.ConnectDB(ctx, nil)
	if err != nil {
		return err
	}
	if err := postgres.RunMigrations(ctx, db); err != nil {
		return err
	}

	repo := postgres.NewJobRepository(db)

	handlers := registry.New()
	worker.RegisterHandlers(handlers, logger)

	opts := []worker.Option{
		worker.WithLogger(logger),
		worker.WithInstanceID(instanceID),
		worker.WithQueueAlarmThreshold(cfg.QueueAlarmThreshold),
		worker.WithMaxConcurrency(cfg.MaxConcurrency),
	}
	if cfg.PendingLease > 0 {
		opts = append(opts, worker.WithJanitor(
			pool.NewJanitor(repo, cfg.PendingLease, cfg.JanitorInterval, logger)))
	}

	scheduler := worker.NewScheduler(
		repo,
		handlers,
		retry.NewPolicy(cfg.RetryLimit, cfg.DefaultJobDelay, cfg.RetryGrace),
		sinks,
		cfg.PollInterval,
		opts...,
	)

	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	logger.Info("worker running", "instance", instanceID, "kinds", handlers.Kinds())

	<-ctx.Done()
	logger.Info("shutting down")
	scheduler.Stop()
	logger.Info("shutdown complete")
	return nil
}
