package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"tg-channel-nav/internal/infra/metrics"
)

// Counter — атомарный счётчик с TTL. Боевая реализация — Redis,
// тесты подставляют свою.
type Counter interface {
	// Incr увеличивает счётчик и возвращает новое значение.
	Incr(ctx context.Context, key string) (int64, error)
	// Expire выставляет время жизни ключа.
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// Limiter считает события в фиксированном окне: INCR и EXPIRE на первом
// инкременте. На границе окон возможен двойной лимит — осознанная плата
// за O(1) без распределённой координации. Недоступный счётчик пропускает
// запрос: доступность каталога важнее строгой защиты от абуза.
type Limiter struct {
	counter Counter
	log     zerolog.Logger

	// APIMaxPerHour — потолок для именованных API-эндпоинтов.
	APIMaxPerHour int
}

// New создаёт лимитер поверх счётчика.
func New(counter Counter, logger zerolog.Logger) *Limiter {
	return &Limiter{counter: counter, log: logger, APIMaxPerHour: 10000}
}

// Check увеличивает счётчик окна (scope, subject) и сообщает, уложился
// ли вызывающий в maxRequests за window.
func (l *Limiter) Check(ctx context.Context, scope, subject string, maxRequests int, window time.Duration) bool {
	key := fmt.Sprintf("ratelimit:%s:%s", scope, subject)

	count, err := l.counter.Incr(ctx, key)
	if err != nil {
		l.log.Warn().Err(err).Str("scope", scope).Msg("ratelimit: counter unavailable, allowing")
		return true
	}
	if count == 1 {
		if err := l.counter.Expire(ctx, key, window); err != nil {
			l.log.Warn().Err(err).Str("scope", scope).Msg("ratelimit: expire failed, allowing")
			return true
		}
	}
	allowed := count <= int64(maxRequests)
	if !allowed {
		metrics.RateLimitRejections.WithLabelValues(scope).Inc()
	}
	return allowed
}

// AllowLike — лимит переключений лайка: 20 операций в минуту на устройство.
func (l *Limiter) AllowLike(ctx context.Context, fingerprint string) bool {
	return l.Check(ctx, "like", fingerprint, 20, time.Minute)
}

// AllowSearch — лимит поиска: 30 запросов в минуту на устройство.
func (l *Limiter) AllowSearch(ctx context.Context, fingerprint string) bool {
	return l.Check(ctx, "search", fingerprint, 30, time.Minute)
}

// AllowAdmin — лимит админских действий: 50 в минуту на оператора.
func (l *Limiter) AllowAdmin(ctx context.Context, identifier string) bool {
	return l.Check(ctx, "admin", identifier, 50, time.Minute)
}

// AllowGlobalIP — общий лимит на IP: 60 запросов в минуту по любым путям.
func (l *Limiter) AllowGlobalIP(ctx context.Context, ip string) bool {
	return l.Check(ctx, "ip:global", ip, 60, time.Minute)
}

// AllowPageIP — лимит листания страниц: 10 в минуту на IP, против
// быстрого перебора выдачи.
func (l *Limiter) AllowPageIP(ctx context.Context, ip string) bool {
	return l.Check(ctx, "ip:page", ip, 10, time.Minute)
}

// AllowAPI — грубый часовой лимит именованного эндпоинта на IP.
func (l *Limiter) AllowAPI(ctx context.Context, ip, endpoint string) bool {
	return l.Check(ctx, "ip:api:"+endpoint, ip, l.APIMaxPerHour, time.Hour)
}

// RedisCounter реализует Counter поверх go-redis.
type RedisCounter struct {
	client *redis.Client
}

// NewRedisCounter создаёт счётчик.
func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

// Incr атомарно увеличивает ключ.
func (c *RedisCounter) Incr(ctx context.Context, key string) (int64, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	start := time.Now()
	count, err := c.client.Incr(ctx, key).Result()
	metrics.ObserveNetworkRequest("redis", "ratelimit_incr", "ratelimit", start, err)
	return count, err
}

// Expire выставляет TTL окна.
func (c *RedisCounter) Expire(ctx context.Context, key string, ttl time.Duration) error {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	start := time.Now()
	err := c.client.Expire(ctx, key, ttl).Err()
	metrics.ObserveNetworkRequest("redis", "ratelimit_expire", "ratelimit", start, err)
	return err
}

func opCtx(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if _, ok := parent.Deadline(); ok {
		return parent, func() {}
	}
	return context.WithTimeout(parent, time.Second)
}
