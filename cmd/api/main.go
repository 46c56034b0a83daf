package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"tg-channel-nav/internal/adapters/repo"
	"tg-channel-nav/internal/infra/cache"
	"tg-channel-nav/internal/infra/config"
	"tg-channel-nav/internal/infra/db"
	httpinfra "tg-channel-nav/internal/infra/http"
	"tg-channel-nav/internal/infra/log"
	"tg-channel-nav/internal/infra/metrics"
	"tg-channel-nav/internal/infra/ratelimit"
	"tg-channel-nav/internal/usecase/directory"
	"tg-channel-nav/internal/usecase/likes"
	"tg-channel-nav/internal/usecase/weight"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv).With().Str("service", "api").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister(prometheus.DefaultRegisterer)
	metrics.StartServer(ctx, logger, cfg.MetricsAddr)

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres недоступен")
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() { _ = redisClient.Close() }()

	memory := cache.NewMemory(time.Duration(cfg.Cache.MemoryTTLSeconds) * time.Second)
	memory.StartSweeper(time.Minute, ctx.Done())
	tiered := cache.NewTiered(
		memory,
		cache.NewRedis(redisClient, logger),
		time.Duration(cfg.Cache.ListingTTLSeconds)*time.Second,
		time.Duration(cfg.Cache.SearchTTLSeconds)*time.Second,
	)

	limiter := ratelimit.New(ratelimit.NewRedisCounter(redisClient), logger)
	limiter.APIMaxPerHour = cfg.Limits.APIMaxPerHour

	store := repo.NewPostgres(pool)
	directorySvc := directory.New(store, store, tiered, limiter, logger)
	likesSvc := likes.New(store, store, tiered, limiter, logger)
	weightSvc := weight.New(store, tiered, logger, cfg.Limits.BatchChunkSize)

	server := httpinfra.NewServer(logger)
	handlers := httpinfra.NewHandlers(directorySvc, likesSvc, weightSvc, limiter, logger)
	handlers.Mount(server.Router, cfg.AdminToken, limiter)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(fmt.Sprintf(":%d", cfg.Port))
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("получен сигнал остановки")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("HTTP сервер упал")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("сервер не остановился корректно")
		os.Exit(1)
	}
	logger.Info().Msg("сервис остановлен")
}
