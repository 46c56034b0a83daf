package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tg-channel-nav/internal/domain"
)

// ChannelView — публичная проекция канала. Составляющие веса и
// операторские поля наружу не выходят.
type ChannelView struct {
	Username    string        `json:"username"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Avatar      string        `json:"avatar,omitempty"`
	Verified    bool          `json:"verified"`
	Members     int64         `json:"members"`
	Likes       int64         `json:"likes"`
	Weight      int64         `json:"weight"`
	Growth      domain.Growth `json:"growth"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Page — страница публичной выдачи.
type Page struct {
	Channels   []ChannelView         `json:"channels"`
	Stats      domain.DirectoryStats `json:"stats"`
	Pagination domain.Pagination     `json:"pagination"`
	Keyword    string                `json:"keyword,omitempty"`
}

// AdminChannelView — проекция канала для админки: вес с разбивкой,
// состояние понижения и флаги видимости.
type AdminChannelView struct {
	ChannelView
	Active        bool                  `json:"active"`
	AdminHidden   bool                  `json:"admin_hidden"`
	Language      domain.Language       `json:"language"`
	BaseWeight    int64                 `json:"base_weight"`
	LikeBonus     int64                 `json:"like_bonus"`
	Demoted       bool                  `json:"demoted"`
	DemoteCount   int                   `json:"demote_count"`
	DemoteHistory []domain.DemoteRecord `json:"demote_history,omitempty"`
	WeightReason  string                `json:"weight_reason,omitempty"`
}

// AdminPage — страница админской выдачи.
type AdminPage struct {
	Channels   []AdminChannelView `json:"channels"`
	Stats      domain.AdminStats  `json:"stats"`
	Pagination domain.Pagination  `json:"pagination"`
	Keyword    string             `json:"keyword,omitempty"`
}

// Service — читающая поверхность каталога плюс операторские действия
// над записями. Публичные чтения идут через двухуровневый кэш, админские
// всегда из хранилища.
type Service struct {
	channels domain.ChannelRepo
	keywords domain.KeywordRepo
	cache    domain.DirectoryCache
	limiter  domain.RateLimiter
	log      zerolog.Logger

	now func() time.Time
}

// New создаёт сервис каталога.
func New(channels domain.ChannelRepo, keywords domain.KeywordRepo, cache domain.DirectoryCache, limiter domain.RateLimiter, logger zerolog.Logger) *Service {
	return &Service{
		channels: channels,
		keywords: keywords,
		cache:    cache,
		limiter:  limiter,
		log:      logger.With().Str("component", "directory").Logger(),
		now:      time.Now,
	}
}

// List возвращает страницу публичного каталога. Параметры приводятся к
// допустимым диапазонам, а не отклоняются.
func (s *Service) List(ctx context.Context, sortBy string, page, pageSize int) (Page, error) {
	sortBy = domain.NormalizeSortBy(sortBy)
	page = domain.NormalizePage(page)
	pageSize = domain.NormalizePageSize(pageSize)

	if payload, ok := s.cache.GetListing(ctx, sortBy, page, pageSize); ok {
		var cached Page
		if err := json.Unmarshal(payload, &cached); err == nil {
			return cached, nil
		}
	}

	channels, err := s.channels.List(ctx, domain.ListQuery{
		SortBy:     sortBy,
		Page:       page,
		PageSize:   pageSize,
		ListedOnly: true,
	})
	if err != nil {
		return Page{}, err
	}
	stats, err := s.channels.DirectoryStats(ctx)
	if err != nil {
		return Page{}, err
	}

	result := Page{
		Channels: toViews(channels),
		Stats:    stats,
		Pagination: domain.Pagination{
			Page:     page,
			PageSize: pageSize,
			Total:    stats.Total,
			HasMore:  int64(page)*int64(pageSize) < stats.Total,
		},
	}
	if payload, err := json.Marshal(result); err == nil {
		s.cache.SetListing(ctx, sortBy, page, pageSize, payload)
	}
	return result, nil
}

// Search ищет каналы по названию. Пустой после санитизации запрос
// отклоняется. Непустой fingerprint включает лимит поиска; найденный
// запрос сохраняется для планировщика краулера.
func (s *Service) Search(ctx context.Context, keyword, fingerprint string, page, pageSize int) (Page, error) {
	keyword = domain.SanitizeKeyword(keyword)
	if keyword == "" {
		return Page{}, fmt.Errorf("%w: пустой поисковый запрос", domain.ErrInvalidArgument)
	}
	if fingerprint != "" {
		if !domain.ValidFingerprint(fingerprint) {
			return Page{}, fmt.Errorf("%w: fingerprint", domain.ErrInvalidArgument)
		}
		if !s.limiter.AllowSearch(ctx, fingerprint) {
			return Page{}, domain.ErrRateLimited
		}
	}
	page = domain.NormalizePage(page)
	pageSize = domain.NormalizePageSize(pageSize)

	s.captureKeyword(ctx, keyword)

	if payload, ok := s.cache.GetSearch(ctx, keyword, page, pageSize); ok {
		var cached Page
		if err := json.Unmarshal(payload, &cached); err == nil {
			return cached, nil
		}
	}

	channels, total, err := s.channels.Search(ctx, domain.SearchQuery{
		Keyword:    keyword,
		SortBy:     domain.DefaultSortBy,
		Page:       page,
		PageSize:   pageSize,
		ListedOnly: true,
	})
	if err != nil {
		return Page{}, err
	}

	result := Page{
		Channels: toViews(channels),
		Stats:    domain.DirectoryStats{Total: total},
		Pagination: domain.Pagination{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
			HasMore:  int64(page)*int64(pageSize) < total,
		},
		Keyword: keyword,
	}
	if payload, err := json.Marshal(result); err == nil {
		s.cache.SetSearch(ctx, keyword, page, pageSize, payload)
	}
	return result, nil
}

// captureKeyword сохраняет поисковый запрос best-effort: сбой записи не
// должен ломать поиск.
func (s *Service) captureKeyword(ctx context.Context, keyword string) {
	isNew, err := s.keywords.RecordSearchKeyword(ctx, keyword, s.now())
	if err != nil {
		s.log.Warn().Err(err).Str("keyword", keyword).Msg("поисковый запрос не сохранён")
		return
	}
	if isNew {
		s.log.Debug().Str("keyword", keyword).Msg("новый поисковый запрос")
	}
}

// GetByUsername возвращает публичную проекцию одного канала.
// Скрытые и недостижимые каналы для публичной поверхности не существуют.
func (s *Service) GetByUsername(ctx context.Context, username string) (ChannelView, error) {
	username = domain.NormalizeUsername(username)
	if !domain.ValidUsername(username) {
		return ChannelView{}, fmt.Errorf("%w: username", domain.ErrInvalidArgument)
	}
	ch, err := s.channels.GetByUsername(ctx, username)
	if err != nil {
		return ChannelView{}, err
	}
	if !ch.Visibility.IsListed() {
		return ChannelView{}, domain.ErrNotFound
	}
	return toView(ch), nil
}

// AdminList — листинг для админки: без кэша, опционально со скрытыми.
func (s *Service) AdminList(ctx context.Context, sortBy string, page, pageSize int, showDisabled bool) (AdminPage, error) {
	sortBy = domain.NormalizeSortBy(sortBy)
	page = domain.NormalizePage(page)
	pageSize = domain.NormalizePageSize(pageSize)

	channels, err := s.channels.List(ctx, domain.ListQuery{
		SortBy:     sortBy,
		Page:       page,
		PageSize:   pageSize,
		ListedOnly: !showDisabled,
	})
	if err != nil {
		return AdminPage{}, err
	}
	stats, err := s.channels.AdminStats(ctx)
	if err != nil {
		return AdminPage{}, err
	}

	total := stats.Total
	if !showDisabled {
		total = stats.ActiveCount
	}
	return AdminPage{
		Channels: toAdminViews(channels),
		Stats:    stats,
		Pagination: domain.Pagination{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
			HasMore:  int64(page)*int64(pageSize) < total,
		},
	}, nil
}

// AdminSearch ищет по названию и username среди всех каналов.
func (s *Service) AdminSearch(ctx context.Context, keyword string, page, pageSize int) (AdminPage, error) {
	keyword = domain.SanitizeKeyword(keyword)
	if keyword == "" {
		return AdminPage{}, fmt.Errorf("%w: пустой поисковый запрос", domain.ErrInvalidArgument)
	}
	page = domain.NormalizePage(page)
	pageSize = domain.NormalizePageSize(pageSize)

	channels, total, err := s.channels.Search(ctx, domain.SearchQuery{
		Keyword:         keyword,
		SortBy:          domain.DefaultSortBy,
		Page:            page,
		PageSize:        pageSize,
		ListedOnly:      false,
		IncludeUsername: true,
	})
	if err != nil {
		return AdminPage{}, err
	}
	stats, err := s.channels.AdminStats(ctx)
	if err != nil {
		return AdminPage{}, err
	}

	return AdminPage{
		Channels: toAdminViews(channels),
		Stats:    stats,
		Pagination: domain.Pagination{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
			HasMore:  int64(page)*int64(pageSize) < total,
		},
		Keyword: keyword,
	}, nil
}

// ToggleVisibility переключает операторский флаг скрытия канала.
// Возвращает новое значение admin_hidden.
func (s *Service) ToggleVisibility(ctx context.Context, username string) (bool, error) {
	username = domain.NormalizeUsername(username)
	if !domain.ValidUsername(username) {
		return false, fmt.Errorf("%w: username", domain.ErrInvalidArgument)
	}
	ch, err := s.channels.GetByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	hidden := !ch.Visibility.AdminHidden
	if err := s.channels.SetAdminHidden(ctx, username, hidden); err != nil {
		return false, err
	}
	s.cache.InvalidateListings(ctx)
	s.log.Info().Str("username", username).Bool("hidden", hidden).Msg("видимость канала переключена")
	return hidden, nil
}

// ManualAdd добавляет каналы из операторского списка. Принимает @name,
// t.me/name и голые username; существующие пропускаются, невалидные
// попадают в Failed. Канал получает нулевой вес до первого обхода
// краулером.
func (s *Service) ManualAdd(ctx context.Context, inputs []string) domain.BatchResult {
	var result domain.BatchResult
	added := false
	for _, input := range inputs {
		username := domain.NormalizeUsername(input)
		if !domain.ValidUsername(username) {
			result.Failed = append(result.Failed, domain.BatchItem{
				Username: input,
				Reason:   "некорректный username",
			})
			continue
		}

		now := s.now()
		err := s.channels.Insert(ctx, domain.Channel{
			Username: username,
			Weight: domain.Weight{
				Reason:         "ручное добавление",
				LastCalculated: &now,
			},
			Visibility: domain.Visibility{Active: true},
		})
		switch {
		case errors.Is(err, domain.ErrConflict):
			result.Skipped = append(result.Skipped, domain.BatchItem{
				Username: username,
				Reason:   "канал уже в каталоге",
			})
		case err != nil:
			result.Failed = append(result.Failed, domain.BatchItem{
				Username: username,
				Reason:   err.Error(),
			})
		default:
			added = true
			result.Success = append(result.Success, domain.BatchItem{Username: username})
		}
	}
	if added {
		s.cache.InvalidateListings(ctx)
	}
	return result
}

// Stats возвращает админскую сводку каталога.
func (s *Service) Stats(ctx context.Context) (domain.AdminStats, error) {
	return s.channels.AdminStats(ctx)
}

func toView(ch domain.Channel) ChannelView {
	return ChannelView{
		Username:    ch.Username,
		Name:        ch.Name,
		Description: ch.Description,
		Avatar:      ch.Avatar,
		Verified:    ch.Verified,
		Members:     ch.Stats.Members,
		Likes:       ch.Stats.Likes,
		Weight:      ch.Weight.Value,
		Growth:      ch.Stats.Growth,
		CreatedAt:   ch.CreatedAt,
		UpdatedAt:   ch.UpdatedAt,
	}
}

func toViews(channels []domain.Channel) []ChannelView {
	views := make([]ChannelView, 0, len(channels))
	for _, ch := range channels {
		views = append(views, toView(ch))
	}
	return views
}

func toAdminViews(channels []domain.Channel) []AdminChannelView {
	views := make([]AdminChannelView, 0, len(channels))
	for _, ch := range channels {
		views = append(views, AdminChannelView{
			ChannelView:   toView(ch),
			Active:        ch.Visibility.Active,
			AdminHidden:   ch.Visibility.AdminHidden,
			Language:      domain.ClassifyName(ch.Name),
			BaseWeight:    ch.Weight.BaseWeight,
			LikeBonus:     ch.Weight.LikeBonus,
			Demoted:       ch.Weight.Demoted,
			DemoteCount:   ch.Weight.DemoteCount,
			DemoteHistory: ch.Weight.DemoteHistory,
			WeightReason:  ch.Weight.Reason,
		})
	}
	return views
}

// FlushListings — явный сброс листингового кэша из админки.
func (s *Service) FlushListings(ctx context.Context) {
	s.cache.InvalidateListings(ctx)
}
