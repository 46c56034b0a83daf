package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tg-channel-nav/internal/domain"
)

// stubChannels записывает применённые снимки.
type stubChannels struct {
	snapshots []domain.ChannelSnapshot
	known     map[string]bool
	upsertErr error
}

func newStubChannels() *stubChannels {
	return &stubChannels{known: make(map[string]bool)}
}

func (s *stubChannels) GetByUsername(context.Context, string) (domain.Channel, error) {
	return domain.Channel{}, domain.ErrNotFound
}

func (s *stubChannels) List(context.Context, domain.ListQuery) ([]domain.Channel, error) {
	return nil, nil
}

func (s *stubChannels) Search(context.Context, domain.SearchQuery) ([]domain.Channel, int64, error) {
	return nil, 0, nil
}

func (s *stubChannels) DirectoryStats(context.Context) (domain.DirectoryStats, error) {
	return domain.DirectoryStats{}, nil
}

func (s *stubChannels) AdminStats(context.Context) (domain.AdminStats, error) {
	return domain.AdminStats{}, nil
}

func (s *stubChannels) ListNames(context.Context) ([]domain.ChannelName, error) { return nil, nil }

func (s *stubChannels) Insert(context.Context, domain.Channel) error { return nil }

func (s *stubChannels) UpsertSnapshot(_ context.Context, snap domain.ChannelSnapshot) (bool, error) {
	if s.upsertErr != nil {
		return false, s.upsertErr
	}
	s.snapshots = append(s.snapshots, snap)
	created := !s.known[snap.Username]
	s.known[snap.Username] = true
	return created, nil
}

func (s *stubChannels) SetAdminHidden(context.Context, string, bool) error { return nil }

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

// stubJobs — реестр обработанных задач.
type stubJobs struct {
	acquired map[string]bool
}

func newStubJobs() *stubJobs { return &stubJobs{acquired: make(map[string]bool)} }

func (s *stubJobs) AcquireIngestJob(_ context.Context, jobID string) (bool, error) {
	if s.acquired[jobID] {
		return false, nil
	}
	s.acquired[jobID] = true
	return true, nil
}

type stubCache struct {
	invalidations int
}

func (c *stubCache) GetListing(context.Context, string, int, int) ([]byte, bool) { return nil, false }
func (c *stubCache) SetListing(context.Context, string, int, int, []byte)        {}
func (c *stubCache) GetSearch(context.Context, string, int, int) ([]byte, bool)  { return nil, false }
func (c *stubCache) SetSearch(context.Context, string, int, int, []byte)         {}
func (c *stubCache) GetLikeStatus(context.Context, string, string) ([]byte, bool) {
	return nil, false
}
func (c *stubCache) SetLikeStatus(context.Context, string, string, []byte) {}
func (c *stubCache) DeleteLikeStatus(context.Context, string, string)      {}
func (c *stubCache) InvalidateListings(context.Context)                    { c.invalidations++ }

func TestApplyNormalizesAndUpserts(t *testing.T) {
	channels := newStubChannels()
	cache := &stubCache{}
	svc := New(channels, newStubJobs(), cache, zerolog.Nop())

	err := svc.Apply(context.Background(), domain.ChannelSnapshot{
		JobID:    "job-1",
		Username: "@TechNews",
		Name:     "Tech News",
		Members:  12345,
		Active:   true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(channels.snapshots) != 1 {
		t.Fatalf("снимков применено: %d", len(channels.snapshots))
	}
	if channels.snapshots[0].Username != "technews" {
		t.Errorf("username не нормализован: %q", channels.snapshots[0].Username)
	}
	if cache.invalidations != 1 {
		t.Errorf("инвалидаций: %d", cache.invalidations)
	}
}

func TestApplyRejectsInvalidSnapshot(t *testing.T) {
	svc := New(newStubChannels(), newStubJobs(), &stubCache{}, zerolog.Nop())
	ctx := context.Background()

	err := svc.Apply(ctx, domain.ChannelSnapshot{JobID: "job-1", Username: "ab"})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("короткий username: %v", err)
	}
	err = svc.Apply(ctx, domain.ChannelSnapshot{JobID: "job-2", Username: "technews", Members: -1})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("отрицательные подписчики: %v", err)
	}
}

func TestApplyGeneratesJobID(t *testing.T) {
	jobs := newStubJobs()
	svc := New(newStubChannels(), jobs, &stubCache{}, zerolog.Nop())

	if err := svc.Apply(context.Background(), domain.ChannelSnapshot{Username: "technews"}); err != nil {
		t.Fatal(err)
	}
	if len(jobs.acquired) != 1 {
		t.Fatalf("задач зарегистрировано: %d", len(jobs.acquired))
	}
}

func TestApplyIdempotentOnRedelivery(t *testing.T) {
	channels := newStubChannels()
	jobs := newStubJobs()
	svc := New(channels, jobs, &stubCache{}, zerolog.Nop())
	ctx := context.Background()

	snap := domain.ChannelSnapshot{JobID: "job-1", Username: "technews", Members: 100, Active: true}
	if err := svc.Apply(ctx, snap); err != nil {
		t.Fatal(err)
	}
	// Повторная доставка применяется без ошибки: upsert идемпотентен.
	if err := svc.Apply(ctx, snap); err != nil {
		t.Fatal(err)
	}
	if len(jobs.acquired) != 1 {
		t.Errorf("задач в реестре: %d, ожидалась 1", len(jobs.acquired))
	}
}

func TestApplyUpsertFailureKeepsJobUnacquired(t *testing.T) {
	channels := newStubChannels()
	channels.upsertErr = errors.New("connection refused")
	jobs := newStubJobs()
	svc := New(channels, jobs, &stubCache{}, zerolog.Nop())

	snap := domain.ChannelSnapshot{JobID: "job-1", Username: "technews"}
	if err := svc.Apply(context.Background(), snap); err == nil {
		t.Fatal("сбой хранилища должен вернуться в очередь")
	}
	// Задача не зарегистрирована: повторная доставка не будет отброшена.
	if jobs.acquired["job-1"] {
		t.Error("задача зарегистрирована до успешной записи")
	}

	channels.upsertErr = nil
	if err := svc.Apply(context.Background(), snap); err != nil {
		t.Fatalf("повторная доставка после сбоя: %v", err)
	}
	if len(channels.snapshots) != 1 {
		t.Errorf("снимков применено: %d", len(channels.snapshots))
	}
}
