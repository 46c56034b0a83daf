package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tg-channel-nav/internal/domain"
	"tg-channel-nav/internal/infra/metrics"
)

// Service применяет снимки каналов от краулера. Задачи дедуплицируются
// по job_id: повторная доставка из очереди не применяется второй раз.
type Service struct {
	channels domain.ChannelRepo
	jobs     domain.IngestRepo
	cache    domain.DirectoryCache
	log      zerolog.Logger
}

// New создаёт сервис инжеста.
func New(channels domain.ChannelRepo, jobs domain.IngestRepo, cache domain.DirectoryCache, logger zerolog.Logger) *Service {
	return &Service{
		channels: channels,
		jobs:     jobs,
		cache:    cache,
		log:      logger.With().Str("component", "ingest").Logger(),
	}
}

// Apply обрабатывает один снимок. Снимок без job_id получает его на
// месте: дедупликация тогда работает только в пределах этой доставки.
func (s *Service) Apply(ctx context.Context, snap domain.ChannelSnapshot) error {
	snap.Username = domain.NormalizeUsername(snap.Username)
	if !domain.ValidUsername(snap.Username) {
		metrics.IngestJobs.WithLabelValues("invalid").Inc()
		return fmt.Errorf("%w: username %q", domain.ErrInvalidArgument, snap.Username)
	}
	if snap.Members < 0 {
		metrics.IngestJobs.WithLabelValues("invalid").Inc()
		return fmt.Errorf("%w: отрицательное число подписчиков", domain.ErrInvalidArgument)
	}
	if snap.JobID == "" {
		snap.JobID = uuid.NewString()
	}

	start := time.Now()
	created, err := s.channels.UpsertSnapshot(ctx, snap)
	if err != nil {
		metrics.IngestJobs.WithLabelValues("failed").Inc()
		return fmt.Errorf("upsert snapshot: %w", err)
	}

	// Задача регистрируется после успешной записи: при сбое выше снимок
	// вернётся в очередь и не будет отброшен как дубликат. Сам upsert
	// идемпотентен, повторное применение безвредно.
	acquired, err := s.jobs.AcquireIngestJob(ctx, snap.JobID)
	if err != nil {
		s.log.Warn().Err(err).Str("job_id", snap.JobID).Msg("задача инжеста не зарегистрирована")
	}
	if !acquired && err == nil {
		metrics.IngestJobs.WithLabelValues("duplicate").Inc()
	} else {
		metrics.IngestJobs.WithLabelValues("applied").Inc()
	}
	s.cache.InvalidateListings(ctx)
	s.log.Info().Str("username", snap.Username).Bool("created", created).
		Int64("members", snap.Members).Dur("took", time.Since(start)).
		Msg("снимок канала применён")
	return nil
}
