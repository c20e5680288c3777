// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/briangreenhill/poewatch/internal/app"
	"github.com/briangreenhill/poewatch/internal/config"
	"github.com/briangreenhill/poewatch/internal/http/routes"
)

func main() {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "poewatch-api").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	logger = logger.Level(cfg.Level())
	logger.Info().Str("port", cfg.Port).Str("store", cfg.Store).Msg("starting app")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Cache store
	store, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("cache store error")
	}
	defer closeStore()

	svc, err := app.NewService(cfg, store, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("controller error")
	}

	// Queue client for async refreshes, only with a redis backend
	var queue routes.Enqueuer
	if cfg.Store == config.StoreRedis {
		client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn().Err(err).Msg("close asynq client")
			}
		}()
		queue = client
	}

	// Router / server
	s := routes.New(routes.ServerOptions{Svc: svc, Queue: queue, AdminToken: cfg.AdminToken})
	h := hlog.NewHandler(logger)(s.Router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("shutdown")
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server error")
	}
	logger.Info().Msg("server stopped")
}
