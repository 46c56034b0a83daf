package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"tg-channel-nav/internal/adapters/repo"
	"tg-channel-nav/internal/infra/cache"
	"tg-channel-nav/internal/infra/config"
	"tg-channel-nav/internal/infra/db"
	"tg-channel-nav/internal/infra/log"
	"tg-channel-nav/internal/infra/metrics"
	"tg-channel-nav/internal/infra/queue"
	"tg-channel-nav/internal/usecase/ingest"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv).With().Str("service", "ingest").Logger()

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

	// Инжест инвалидирует тот же распределённый кэш, что читает API;
	// процессный уровень здесь свой и фактически пустой.
	memory := cache.NewMemory(time.Duration(cfg.Cache.MemoryTTLSeconds) * time.Second)
	tiered := cache.NewTiered(
		memory,
		cache.NewRedis(redisClient, logger),
		time.Duration(cfg.Cache.ListingTTLSeconds)*time.Second,
		time.Duration(cfg.Cache.SearchTTLSeconds)*time.Second,
	)

	ingestQueue, err := queue.NewRabbitIngestQueue(cfg.AMQPURL, cfg.Queues.Ingest)
	if err != nil {
		logger.Fatal().Err(err).Msg("rabbitmq недоступен")
	}
	defer func() { _ = ingestQueue.Close() }()

	store := repo.NewPostgres(pool)
	svc := ingest.New(store, store, tiered, logger)

	logger.Info().Str("queue", cfg.Queues.Ingest).Msg("консьюмер инжеста запущен")
	if err := ingestQueue.Consume(ctx, svc.Apply); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("консьюмер инжеста упал")
	}
	logger.Info().Msg("сервис остановлен")
}
