package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/meridianhealth/meridian-hub/internal/app"
	"github.com/meridianhealth/meridian-hub/internal/auth"
	"github.com/meridianhealth/meridian-hub/internal/mlo"
	"github.com/meridianhealth/meridian-hub/internal/platform/cache"
	"github.com/meridianhealth/meridian-hub/internal/platform/db"
	"github.com/meridianhealth/meridian-hub/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	client, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init queue client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()

	mloRepo := mlo.NewRepository(pool)
	mloService := mlo.NewService(mloRepo, logger)
	attainment := mlo.NewAttainmentReader(mloService, redisClient, cfg.AttainmentCacheTTL)
	warmupJob := jobs.NewAttainmentWarmupJob(mloService, attainment, logger)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	sweepJob := jobs.NewSessionSweepJob(authService, logger)

	digestJob := jobs.NewNewsletterDigestJob(client, logger)

	digestTask, err := jobs.NewNewsletterDigestTask(jobs.NewsletterDigestPayload{})
	if err != nil {
		logger.Error("build digest task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeAttainmentWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskTypeSessionSweep, Handler: sweepJob.Handle},
			{Type: jobs.TaskTypeNewsletterDigest, Handler: digestJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 1 * * *", Task: jobs.NewAttainmentWarmupTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 1 * * *", Task: jobs.NewSessionSweepTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 7 * * MON", Task: digestTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
