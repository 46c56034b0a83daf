package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tg-channel-nav/internal/domain"
)

// stubChannels считает обращения к хранилищу: кэшированные чтения не
// должны его трогать.
type stubChannels struct {
	channels  map[string]*domain.Channel
	listCalls int
}

func newStubChannels(channels ...domain.Channel) *stubChannels {
	s := &stubChannels{channels: make(map[string]*domain.Channel)}
	for i := range channels {
		ch := channels[i]
		s.channels[ch.Username] = &ch
	}
	return s
}

func (s *stubChannels) GetByUsername(_ context.Context, username string) (domain.Channel, error) {
	ch, ok := s.channels[username]
	if !ok {
		return domain.Channel{}, domain.ErrNotFound
	}
	return *ch, nil
}

func (s *stubChannels) List(_ context.Context, q domain.ListQuery) ([]domain.Channel, error) {
	s.listCalls++
	var result []domain.Channel
	for _, ch := range s.channels {
		if q.ListedOnly && !ch.Visibility.IsListed() {
			continue
		}
		result = append(result, *ch)
	}
	return result, nil
}

func (s *stubChannels) Search(_ context.Context, q domain.SearchQuery) ([]domain.Channel, int64, error) {
	var result []domain.Channel
	for _, ch := range s.channels {
		if q.ListedOnly && !ch.Visibility.IsListed() {
			continue
		}
		result = append(result, *ch)
	}
	return result, int64(len(result)), nil
}

func (s *stubChannels) DirectoryStats(context.Context) (domain.DirectoryStats, error) {
	var stats domain.DirectoryStats
	for _, ch := range s.channels {
		if ch.Visibility.IsListed() {
			stats.Total++
			stats.TotalMembers += ch.Stats.Members
		}
	}
	return stats, nil
}

func (s *stubChannels) AdminStats(context.Context) (domain.AdminStats, error) {
	var stats domain.AdminStats
	for _, ch := range s.channels {
		stats.Total++
		stats.TotalMembers += ch.Stats.Members
		if ch.Visibility.AdminHidden {
			stats.DisabledCount++
		} else {
			stats.ActiveCount++
		}
	}
	return stats, nil
}

func (s *stubChannels) ListNames(context.Context) ([]domain.ChannelName, error) { return nil, nil }

func (s *stubChannels) Insert(_ context.Context, ch domain.Channel) error {
	if _, ok := s.channels[ch.Username]; ok {
		return domain.ErrConflict
	}
	s.channels[ch.Username] = &ch
	return nil
}

func (s *stubChannels) UpsertSnapshot(context.Context, domain.ChannelSnapshot) (bool, error) {
	return false, nil
}

func (s *stubChannels) SetAdminHidden(_ context.Context, username string, hidden bool) error {
	ch, ok := s.channels[username]
	if !ok {
		return domain.ErrNotFound
	}
	ch.Visibility.AdminHidden = hidden
	return nil
}

func (s *stubChannels) SetWeightValue(context.Context, string, int64, string, time.Time) error {
	return nil
}

func (s *stubChannels) ApplyDemotion(context.Context, string, domain.DemoteRecord, string) error {
	return nil
}

func (s *stubChannels) ResetDemotion(context.Context, string, string, time.Time) (int64, error) {
	return 0, domain.ErrNotDemoted
}

func (s *stubChannels) AddWeightDelta(context.Context, string, int64, int64, int64, string, time.Time) error {
	return nil
}

func (s *stubChannels) MultiplyWeights(context.Context, []string, int, string, time.Time) (int64, error) {
	return 0, nil
}

// stubKeywords фиксирует сохранённые поисковые запросы.
type stubKeywords struct {
	saved []string
	err   error
}

func (s *stubKeywords) RecordSearchKeyword(_ context.Context, keyword string, _ time.Time) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	s.saved = append(s.saved, keyword)
	return true, nil
}

// stubCache — кэш листингов и поиска в памяти.
type stubCache struct {
	listings      map[string][]byte
	searches      map[string][]byte
	invalidations int
}

func newStubCache() *stubCache {
	return &stubCache{
		listings: make(map[string][]byte),
		searches: make(map[string][]byte),
	}
}

func listingKey(sortBy string, page, pageSize int) string {
	return fmt.Sprintf("%s/%d/%d", sortBy, page, pageSize)
}

func (c *stubCache) GetListing(_ context.Context, sortBy string, page, pageSize int) ([]byte, bool) {
	payload, ok := c.listings[listingKey(sortBy, page, pageSize)]
	return payload, ok
}

func (c *stubCache) SetListing(_ context.Context, sortBy string, page, pageSize int, payload []byte) {
	c.listings[listingKey(sortBy, page, pageSize)] = payload
}

func (c *stubCache) GetSearch(_ context.Context, keyword string, _, _ int) ([]byte, bool) {
	payload, ok := c.searches[keyword]
	return payload, ok
}

func (c *stubCache) SetSearch(_ context.Context, keyword string, _, _ int, payload []byte) {
	c.searches[keyword] = payload
}

func (c *stubCache) GetLikeStatus(context.Context, string, string) ([]byte, bool) {
	return nil, false
}
func (c *stubCache) SetLikeStatus(context.Context, string, string, []byte) {}
func (c *stubCache) DeleteLikeStatus(context.Context, string, string)      {}
func (c *stubCache) InvalidateListings(context.Context) {
	c.listings = make(map[string][]byte)
	c.invalidations++
}

type stubLimiter struct{ allow bool }

func (l *stubLimiter) AllowLike(context.Context, string) bool   { return l.allow }
func (l *stubLimiter) AllowSearch(context.Context, string) bool { return l.allow }
func (l *stubLimiter) AllowAdmin(context.Context, string) bool  { return l.allow }

func listedChannel(username string, members int64) domain.Channel {
	return domain.Channel{
		Username:   username,
		Name:       username,
		Stats:      domain.ChannelStats{Members: members},
		Visibility: domain.Visibility{Active: true},
	}
}

func newService(store *stubChannels, keywords *stubKeywords, cache *stubCache, allow bool) *Service {
	return New(store, keywords, cache, &stubLimiter{allow: allow}, zerolog.Nop())
}

func TestListMissPopulatesCache(t *testing.T) {
	store := newStubChannels(listedChannel("technews", 100))
	cache := newStubCache()
	svc := newService(store, &stubKeywords{}, cache, true)

	page, err := svc.List(context.Background(), "weight", 1, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Channels) != 1 || page.Stats.Total != 1 {
		t.Fatalf("страница: %+v", page)
	}
	if store.listCalls != 1 {
		t.Errorf("обращений к хранилищу: %d", store.listCalls)
	}
	if len(cache.listings) != 1 {
		t.Error("промах должен записать страницу в кэш")
	}
}

func TestListServedFromCache(t *testing.T) {
	store := newStubChannels(listedChannel("technews", 100))
	cache := newStubCache()
	cached, _ := json.Marshal(Page{Stats: domain.DirectoryStats{Total: 42}})
	cache.listings[listingKey("weight", 1, 20)] = cached
	svc := newService(store, &stubKeywords{}, cache, true)

	page, err := svc.List(context.Background(), "weight", 1, 20)
	if err != nil {
		t.Fatal(err)
	}
	if page.Stats.Total != 42 {
		t.Fatalf("страница не из кэша: %+v", page.Stats)
	}
	if store.listCalls != 0 {
		t.Errorf("кэшированное чтение пошло в хранилище: %d вызовов", store.listCalls)
	}
}

func TestListExcludesHidden(t *testing.T) {
	hidden := listedChannel("hidden_one", 50)
	hidden.Visibility.AdminHidden = true
	store := newStubChannels(listedChannel("visible_one", 100), hidden)
	svc := newService(store, &stubKeywords{}, newStubCache(), true)

	page, err := svc.List(context.Background(), "weight", 1, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Channels) != 1 || page.Channels[0].Username != "visible_one" {
		t.Fatalf("публичная выдача: %+v", page.Channels)
	}
}

func TestSearchCapturesKeyword(t *testing.T) {
	store := newStubChannels(listedChannel("technews", 100))
	keywords := &stubKeywords{}
	svc := newService(store, keywords, newStubCache(), true)

	if _, err := svc.Search(context.Background(), "  crypto  news ", "", 1, 20); err != nil {
		t.Fatal(err)
	}
	if len(keywords.saved) != 1 || keywords.saved[0] != "crypto news" {
		t.Fatalf("сохранённые запросы: %v", keywords.saved)
	}
}

func TestSearchKeywordFailureDoesNotBreakSearch(t *testing.T) {
	store := newStubChannels(listedChannel("technews", 100))
	keywords := &stubKeywords{err: errors.New("timeout")}
	svc := newService(store, keywords, newStubCache(), true)

	if _, err := svc.Search(context.Background(), "crypto", "", 1, 20); err != nil {
		t.Fatalf("сбой сохранения запроса сломал поиск: %v", err)
	}
}

func TestSearchEmptyKeyword(t *testing.T) {
	svc := newService(newStubChannels(), &stubKeywords{}, newStubCache(), true)

	if _, err := svc.Search(context.Background(), "   ", "", 1, 20); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("пустой запрос: %v", err)
	}
}

func TestSearchRateLimitedWithFingerprint(t *testing.T) {
	svc := newService(newStubChannels(), &stubKeywords{}, newStubCache(), false)

	if _, err := svc.Search(context.Background(), "crypto", "a1b2c3d4e5f6a7b8", 1, 20); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("ожидался ErrRateLimited: %v", err)
	}
	// Без отпечатка лимит поиска не применяется.
	if _, err := svc.Search(context.Background(), "crypto", "", 1, 20); err != nil {
		t.Fatalf("поиск без отпечатка: %v", err)
	}
}

func TestGetByUsernameHidesUnlisted(t *testing.T) {
	hidden := listedChannel("hidden_one", 50)
	hidden.Visibility.AdminHidden = true
	store := newStubChannels(hidden)
	svc := newService(store, &stubKeywords{}, newStubCache(), true)

	if _, err := svc.GetByUsername(context.Background(), "hidden_one"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("скрытый канал публично не существует: %v", err)
	}
}

func TestAdminListShowsDisabled(t *testing.T) {
	hidden := listedChannel("hidden_one", 50)
	hidden.Visibility.AdminHidden = true
	store := newStubChannels(listedChannel("visible_one", 100), hidden)
	svc := newService(store, &stubKeywords{}, newStubCache(), true)
	ctx := context.Background()

	page, err := svc.AdminList(ctx, "weight", 1, 20, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Channels) != 2 {
		t.Fatalf("с showDisabled ожидалось 2 канала: %+v", page.Channels)
	}
	if page.Stats.ActiveCount != 1 || page.Stats.DisabledCount != 1 {
		t.Errorf("сводка: %+v", page.Stats)
	}

	page, err = svc.AdminList(ctx, "weight", 1, 20, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Channels) != 1 {
		t.Fatalf("без showDisabled ожидался 1 канал: %+v", page.Channels)
	}
}

func TestToggleVisibility(t *testing.T) {
	store := newStubChannels(listedChannel("technews", 100))
	cache := newStubCache()
	svc := newService(store, &stubKeywords{}, cache, true)
	ctx := context.Background()

	hidden, err := svc.ToggleVisibility(ctx, "technews")
	if err != nil {
		t.Fatal(err)
	}
	if !hidden {
		t.Fatal("первое переключение должно скрыть канал")
	}
	hidden, err = svc.ToggleVisibility(ctx, "technews")
	if err != nil {
		t.Fatal(err)
	}
	if hidden {
		t.Fatal("второе переключение должно вернуть канал")
	}
	if cache.invalidations != 2 {
		t.Errorf("инвалидаций: %d", cache.invalidations)
	}
}

func TestManualAdd(t *testing.T) {
	store := newStubChannels(listedChannel("existing_one", 100))
	cache := newStubCache()
	svc := newService(store, &stubKeywords{}, cache, true)

	result := svc.ManualAdd(context.Background(), []string{
		"@FreshChannel",
		"t.me/another_fresh",
		"existing_one",
		"bad name!",
	})
	if len(result.Success) != 2 {
		t.Errorf("success: %+v", result.Success)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Username != "existing_one" {
		t.Errorf("skipped: %+v", result.Skipped)
	}
	if len(result.Failed) != 1 {
		t.Errorf("failed: %+v", result.Failed)
	}

	added, ok := store.channels["freshchannel"]
	if !ok {
		t.Fatal("канал @FreshChannel не добавлен под каноничным именем")
	}
	if added.Weight.Value != 0 || added.Weight.Reason != "ручное добавление" {
		t.Errorf("документ веса нового канала: %+v", added.Weight)
	}
	if !added.Visibility.Active {
		t.Error("новый канал должен быть активен")
	}
	if cache.invalidations != 1 {
		t.Errorf("инвалидаций: %d", cache.invalidations)
	}
}

func TestManualAddNothingValid(t *testing.T) {
	cache := newStubCache()
	svc := newService(newStubChannels(), &stubKeywords{}, cache, true)

	result := svc.ManualAdd(context.Background(), []string{"x", "y!"})
	if len(result.Success) != 0 || len(result.Failed) != 2 {
		t.Fatalf("результат: %+v", result)
	}
	if cache.invalidations != 0 {
		t.Error("без добавлений кэш не сбрасывается")
	}
}
