package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"tg-channel-nav/internal/infra/metrics"
)

// Redis — распределённый уровень кэша. Любая ошибка хранилища
// превращается в промах: кэш ускоряет чтения, но не влияет на их
// корректность, поэтому недоступность Redis не должна ронять запрос.
type Redis struct {
	client *redis.Client
	log    zerolog.Logger
}

// NewRedis создаёт распределённый уровень.
func NewRedis(client *redis.Client, logger zerolog.Logger) *Redis {
	return &Redis{client: client, log: logger}
}

// Get возвращает значение или промах.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	start := time.Now()
	payload, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.ObserveNetworkRequest("redis", "cache_get", "cache", start, nil)
		return nil, false
	}
	metrics.ObserveNetworkRequest("redis", "cache_get", "cache", start, err)
	if err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("cache: redis get failed, treating as miss")
		return nil, false
	}
	return payload, true
}

// Set сохраняет значение с TTL.
func (r *Redis) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	start := time.Now()
	err := r.client.Set(ctx, key, payload, ttl).Err()
	metrics.ObserveNetworkRequest("redis", "cache_set", "cache", start, err)
	if err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("cache: redis set failed")
	}
}

// Delete удаляет один ключ.
func (r *Redis) Delete(ctx context.Context, key string) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	start := time.Now()
	err := r.client.Del(ctx, key).Err()
	metrics.ObserveNetworkRequest("redis", "cache_del", "cache", start, err)
	if err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("cache: redis del failed")
	}
}

// DeleteByPattern удаляет все ключи по шаблону через SCAN и возвращает
// число удалённых. KEYS блокирует Redis на больших объёмах.
func (r *Redis) DeleteByPattern(ctx context.Context, pattern string) int {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	start := time.Now()
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			metrics.ObserveNetworkRequest("redis", "cache_scan", "cache", start, err)
			r.log.Warn().Err(err).Str("pattern", pattern).Msg("cache: redis scan failed")
			return deleted
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				metrics.ObserveNetworkRequest("redis", "cache_del_bulk", "cache", start, err)
				r.log.Warn().Err(err).Str("pattern", pattern).Msg("cache: redis bulk del failed")
				return deleted
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	metrics.ObserveNetworkRequest("redis", "cache_del_pattern", "cache", start, nil)
	return deleted
}

func opCtx(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if _, ok := parent.Deadline(); ok {
		return parent, func() {}
	}
	return context.WithTimeout(parent, 2*time.Second)
}
