package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/poewatch/internal/app"
	"github.com/briangreenhill/poewatch/internal/config"
	"github.com/briangreenhill/poewatch/internal/jobs"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "poewatch-worker").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	logger = logger.Level(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to open cache store")
	}
	defer closeStore()

	svc, err := app.NewService(cfg, store, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("controller error")
	}

	redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		// refreshes are serialized by the controller anyway
		Concurrency: 1,
		Queues: map[string]int{
			jobs.QueueRefresh: 10,
			"default":         5,
		},
		Logger:   asynqLogger{logger.With().Str("component", "asynq").Logger()},
		LogLevel: asynq.WarnLevel,
	})
	mux := asynq.NewServeMux()
	mux.Handle(jobs.TaskRefreshDatasets, jobs.RefreshHandler{
		Refresher: svc.Controller,
		Logger:    logger.With().Str("task", jobs.TaskRefreshDatasets).Logger(),
	})

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Logger:   asynqLogger{logger.With().Str("component", "scheduler").Logger()},
		LogLevel: asynq.WarnLevel,
	})
	task, err := jobs.NewRefreshDatasetsTask(cfg.PoeWatch.TTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("build refresh task")
	}
	entryID, err := scheduler.Register(cfg.PoeWatch.RefreshCron, task)
	if err != nil {
		logger.Fatal().Err(err).Str("cron", cfg.PoeWatch.RefreshCron).Msg("register refresh schedule")
	}
	logger.Info().Str("entry", entryID).Str("cron", cfg.PoeWatch.RefreshCron).Msg("refresh scheduled")

	if err := scheduler.Start(); err != nil {
		logger.Fatal().Err(err).Msg("scheduler error")
	}
	defer scheduler.Shutdown()

	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker error")
	}
	logger.Info().Msg("worker running")

	<-ctx.Done()
	srv.Shutdown()
	logger.Info().Msg("worker stopped")
}
