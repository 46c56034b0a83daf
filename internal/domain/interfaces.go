package domain

import (
	"context"
	"time"
)

// ListQuery — параметры постраничного листинга.
type ListQuery struct {
	SortBy   string
	Page     int
	PageSize int
	// ListedOnly ограничивает выдачу каналами, видимыми публично.
	// Админка запрашивает false и видит скрытые записи.
	ListedOnly bool
}

// SearchQuery — параметры поиска по названию (и username в админке).
type SearchQuery struct {
	Keyword         string
	SortBy          string
	Page            int
	PageSize        int
	ListedOnly      bool
	IncludeUsername bool
}

// ChannelRepo управляет документами каналов.
type ChannelRepo interface {
	GetByUsername(ctx context.Context, username string) (Channel, error)
	List(ctx context.Context, q ListQuery) ([]Channel, error)
	Search(ctx context.Context, q SearchQuery) ([]Channel, int64, error)
	DirectoryStats(ctx context.Context) (DirectoryStats, error)
	AdminStats(ctx context.Context) (AdminStats, error)
	ListNames(ctx context.Context) ([]ChannelName, error)
	Insert(ctx context.Context, ch Channel) error
	// UpsertSnapshot применяет снимок краулера; created=true при первой встрече.
	UpsertSnapshot(ctx context.Context, snap ChannelSnapshot) (created bool, err error)
	SetAdminHidden(ctx context.Context, username string, hidden bool) error

	// Мутации веса. Значения считает WeightEngine, хранилище применяет их
	// атомарно: история — через append, счётчики — через инкремент.
	SetWeightValue(ctx context.Context, username string, value int64, reason string, at time.Time) error
	ApplyDemotion(ctx context.Context, username string, rec DemoteRecord, reason string) error
	ResetDemotion(ctx context.Context, username string, reason string, at time.Time) (restored int64, err error)
	// AddWeightDelta прибавляет дельту к весу, не затирая параллельные правки.
	AddWeightDelta(ctx context.Context, username string, delta int64, likeBonus int64, totalLikes int64, reason string, at time.Time) error
	// MultiplyWeights применяет value = floor(value*(100-percent)/100)
	// к каждому каналу из chunk одним необратимым пакетным обновлением.
	MultiplyWeights(ctx context.Context, usernames []string, percent int, reason string, at time.Time) (int64, error)
}

// LikeRepo управляет записями и агрегатами лайков.
type LikeRepo interface {
	GetRecord(ctx context.Context, username, fingerprint string) (bool, error)
	// InsertRecord возвращает false, если запись уже есть (конкурентный лайк).
	InsertRecord(ctx context.Context, username, fingerprint string, at time.Time) (bool, error)
	// DeleteRecord возвращает false, если записи уже нет.
	DeleteRecord(ctx context.Context, username, fingerprint string) (bool, error)
	GetAggregate(ctx context.Context, username string) (LikeAggregate, error)
	// AdjustAggregate атомарно сдвигает счётчики на delta и возвращает новый totalLikes.
	AdjustAggregate(ctx context.Context, username string, delta int64, at time.Time) (int64, error)
	// SetAggregate — админская перезапись счётчиков.
	SetAggregate(ctx context.Context, username string, total int64, at time.Time) error
}

// KeywordRepo сохраняет пользовательские поисковые запросы для краулера.
type KeywordRepo interface {
	RecordSearchKeyword(ctx context.Context, keyword string, at time.Time) (isNew bool, err error)
}

// IngestRepo регистрирует задачи инжеста для дедупликации повторных доставок.
type IngestRepo interface {
	// AcquireIngestJob возвращает false, если job уже обрабатывался.
	AcquireIngestJob(ctx context.Context, jobID string) (bool, error)
}

// DirectoryCache — двухуровневый кэш горячих чтений. Все операции
// best-effort: промах и недоступность неразличимы для вызывающего.
type DirectoryCache interface {
	GetListing(ctx context.Context, sortBy string, page, pageSize int) ([]byte, bool)
	SetListing(ctx context.Context, sortBy string, page, pageSize int, payload []byte)
	GetSearch(ctx context.Context, keyword string, page, pageSize int) ([]byte, bool)
	SetSearch(ctx context.Context, keyword string, page, pageSize int, payload []byte)
	GetLikeStatus(ctx context.Context, username, fingerprint string) ([]byte, bool)
	SetLikeStatus(ctx context.Context, username, fingerprint string, payload []byte)
	DeleteLikeStatus(ctx context.Context, username, fingerprint string)
	// InvalidateListings сбрасывает оба уровня листингового пространства ключей.
	// Вызывается после каждой мутации веса или лайков.
	InvalidateListings(ctx context.Context)
}

// RateLimiter ограничивает частоту внешних операций. При недоступности
// счётчика пропускает запрос (fail-open).
type RateLimiter interface {
	AllowLike(ctx context.Context, fingerprint string) bool
	AllowSearch(ctx context.Context, fingerprint string) bool
	AllowAdmin(ctx context.Context, identifier string) bool
}

// IngestQueue — очередь снимков каналов от краулера.
type IngestQueue interface {
	Publish(ctx context.Context, snap ChannelSnapshot) error
	Consume(ctx context.Context, handler func(context.Context, ChannelSnapshot) error) error
}
