package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tg-channel-nav/internal/infra/metrics"
)

// Пространства ключей. Листинги и поиск разнесены, чтобы массовая
// инвалидация и TTL применялись независимо.
const (
	listingPrefix = "nav:channels"
	searchPrefix  = "nav:search"
	likePrefix    = "nav:like"
)

// Tiered объединяет процессный и распределённый уровни: чтение идёт
// сверху вниз, попадание в Redis подогревает память, запись — в оба.
type Tiered struct {
	memory     *Memory
	redis      *Redis
	listingTTL time.Duration
	searchTTL  time.Duration
	likeTTL    time.Duration
}

// NewTiered создаёт двухуровневый кэш каталога. TTL памяти должен быть
// строго меньше TTL распределённого уровня.
func NewTiered(memory *Memory, redis *Redis, listingTTL, searchTTL time.Duration) *Tiered {
	return &Tiered{
		memory:     memory,
		redis:      redis,
		listingTTL: listingTTL,
		searchTTL:  searchTTL,
		likeTTL:    listingTTL,
	}
}

// ListingKey строит детерминированный ключ листинга.
func ListingKey(sortBy string, page, pageSize int) string {
	return fmt.Sprintf("%s:%s:%d:%d", listingPrefix, sortBy, page, pageSize)
}

// SearchKey строит ключ поиска; ключевое слово нормализуется по регистру.
func SearchKey(keyword string, page, pageSize int) string {
	return fmt.Sprintf("%s:%s:%d:%d", searchPrefix, strings.ToLower(keyword), page, pageSize)
}

// LikeStatusKey строит ключ статуса лайка.
func LikeStatusKey(username, fingerprint string) string {
	return fmt.Sprintf("%s:%s:%s", likePrefix, username, fingerprint)
}

// GetListing читает страницу листинга из кэша.
func (t *Tiered) GetListing(ctx context.Context, sortBy string, page, pageSize int) ([]byte, bool) {
	return t.get(ctx, ListingKey(sortBy, page, pageSize), "listing")
}

// SetListing пишет страницу листинга в оба уровня.
func (t *Tiered) SetListing(ctx context.Context, sortBy string, page, pageSize int, payload []byte) {
	t.set(ctx, ListingKey(sortBy, page, pageSize), payload, t.listingTTL)
}

// GetSearch читает страницу поиска из кэша.
func (t *Tiered) GetSearch(ctx context.Context, keyword string, page, pageSize int) ([]byte, bool) {
	return t.get(ctx, SearchKey(keyword, page, pageSize), "search")
}

// SetSearch пишет страницу поиска в оба уровня.
func (t *Tiered) SetSearch(ctx context.Context, keyword string, page, pageSize int, payload []byte) {
	t.set(ctx, SearchKey(keyword, page, pageSize), payload, t.searchTTL)
}

// GetLikeStatus читает статус лайка. Уровень памяти не используется:
// статус персонален для устройства и повторные чтения редки.
func (t *Tiered) GetLikeStatus(ctx context.Context, username, fingerprint string) ([]byte, bool) {
	payload, ok := t.redis.Get(ctx, LikeStatusKey(username, fingerprint))
	if ok {
		metrics.CacheHits.WithLabelValues("redis", "like").Inc()
		return payload, true
	}
	metrics.CacheMisses.WithLabelValues("like").Inc()
	return nil, false
}

// SetLikeStatus пишет статус лайка в распределённый уровень.
func (t *Tiered) SetLikeStatus(ctx context.Context, username, fingerprint string, payload []byte) {
	t.redis.Set(ctx, LikeStatusKey(username, fingerprint), payload, t.likeTTL)
}

// DeleteLikeStatus сбрасывает статус конкретной пары (канал, устройство).
func (t *Tiered) DeleteLikeStatus(ctx context.Context, username, fingerprint string) {
	t.redis.Delete(ctx, LikeStatusKey(username, fingerprint))
}

// InvalidateListings сбрасывает листинговое пространство целиком:
// память — полностью, Redis — по шаблону. Грубая инвалидация выбрана
// сознательно: ключи параметризованы сортировкой и страницей, и точное
// множество затронутых страниц не стоит усложнения.
func (t *Tiered) InvalidateListings(ctx context.Context) {
	t.memory.Clear()
	t.redis.DeleteByPattern(ctx, listingPrefix+":*")
	metrics.CacheInvalidations.Inc()
}

func (t *Tiered) get(ctx context.Context, key, namespace string) ([]byte, bool) {
	if payload, ok := t.memory.Get(key); ok {
		metrics.CacheHits.WithLabelValues("memory", namespace).Inc()
		return payload, true
	}
	if payload, ok := t.redis.Get(ctx, key); ok {
		// Подогреваем процессный уровень: следующее чтение не пойдёт в сеть.
		t.memory.Set(key, payload)
		metrics.CacheHits.WithLabelValues("redis", namespace).Inc()
		return payload, true
	}
	metrics.CacheMisses.WithLabelValues(namespace).Inc()
	return nil, false
}

func (t *Tiered) set(ctx context.Context, key string, payload []byte, ttl time.Duration) {
	t.memory.Set(key, payload)
	t.redis.Set(ctx, key, payload, ttl)
}
