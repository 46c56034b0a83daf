package likes

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tg-channel-nav/internal/domain"
	"tg-channel-nav/internal/infra/metrics"
)

// Service — идемпотентный переключатель лайков. Пара (канал, устройство)
// сериализуется уникальным ключом в хранилище, счётчики двигаются только
// атомарными инкрементами, бонус веса применяется дельтой.
type Service struct {
	channels domain.ChannelRepo
	likes    domain.LikeRepo
	cache    domain.DirectoryCache
	limiter  domain.RateLimiter
	log      zerolog.Logger

	now func() time.Time
}

// New создаёт сервис лайков.
func New(channels domain.ChannelRepo, likes domain.LikeRepo, cache domain.DirectoryCache, limiter domain.RateLimiter, logger zerolog.Logger) *Service {
	return &Service{
		channels: channels,
		likes:    likes,
		cache:    cache,
		limiter:  limiter,
		log:      logger.With().Str("component", "likes").Logger(),
		now:      time.Now,
	}
}

// Toggle переключает лайк устройства fingerprint на канале username.
// Дважды подряд с тем же результатом не срабатывает: нечётный вызов
// ставит лайк, чётный снимает. Возвращает новое состояние.
func (s *Service) Toggle(ctx context.Context, username, fingerprint string) (domain.LikeState, error) {
	username = domain.NormalizeUsername(username)
	if !domain.ValidUsername(username) {
		return domain.LikeState{}, fmt.Errorf("%w: username", domain.ErrInvalidArgument)
	}
	if !domain.ValidFingerprint(fingerprint) {
		return domain.LikeState{}, fmt.Errorf("%w: fingerprint", domain.ErrInvalidArgument)
	}
	if !s.limiter.AllowLike(ctx, fingerprint) {
		return domain.LikeState{}, domain.ErrRateLimited
	}
	if _, err := s.channels.GetByUsername(ctx, username); err != nil {
		return domain.LikeState{}, err
	}

	liked, err := s.likes.GetRecord(ctx, username, fingerprint)
	if err != nil {
		return domain.LikeState{}, err
	}

	now := s.now()
	var (
		delta     int64
		direction string
	)
	if liked {
		removed, err := s.likes.DeleteRecord(ctx, username, fingerprint)
		if err != nil {
			return domain.LikeState{}, err
		}
		if !removed {
			// Конкурентный запрос уже снял лайк; статус переигран заново.
			return s.freshState(ctx, username, fingerprint)
		}
		delta, direction = -1, "unlike"
	} else {
		inserted, err := s.likes.InsertRecord(ctx, username, fingerprint, now)
		if err != nil {
			return domain.LikeState{}, err
		}
		if !inserted {
			return s.freshState(ctx, username, fingerprint)
		}
		delta, direction = 1, "like"
	}

	total, err := s.likes.AdjustAggregate(ctx, username, delta, now)
	if err != nil {
		return domain.LikeState{}, err
	}

	// Бонус веса синхронизируется дельтой, а не перезаписью: параллельные
	// лайки и админские правки веса не затирают друг друга.
	oldBonus := domain.LikeBonus(total - delta)
	newBonus := domain.LikeBonus(total)
	if bonusDelta := newBonus - oldBonus; bonusDelta != 0 {
		reason := fmt.Sprintf("синхронизация бонуса лайков: %d лайков", total)
		if err := s.channels.AddWeightDelta(ctx, username, bonusDelta, newBonus, total, reason, now); err != nil {
			// Счётчик лайков уже сдвинут; вес догонит на следующем переключении.
			s.log.Error().Err(err).Str("username", username).Msg("дельта бонуса не применена")
		}
	}

	metrics.LikeToggles.WithLabelValues(direction).Inc()
	s.cache.DeleteLikeStatus(ctx, username, fingerprint)
	s.cache.InvalidateListings(ctx)

	return domain.LikeState{Liked: delta > 0, Count: total}, nil
}

// Status возвращает состояние лайка без побочных эффектов.
// Чтение идёт через распределённый кэш.
func (s *Service) Status(ctx context.Context, username, fingerprint string) (domain.LikeState, error) {
	username = domain.NormalizeUsername(username)
	if !domain.ValidUsername(username) {
		return domain.LikeState{}, fmt.Errorf("%w: username", domain.ErrInvalidArgument)
	}
	if !domain.ValidFingerprint(fingerprint) {
		return domain.LikeState{}, fmt.Errorf("%w: fingerprint", domain.ErrInvalidArgument)
	}

	if payload, ok := s.cache.GetLikeStatus(ctx, username, fingerprint); ok {
		var state domain.LikeState
		if err := json.Unmarshal(payload, &state); err == nil {
			return state, nil
		}
	}

	state, err := s.freshState(ctx, username, fingerprint)
	if err != nil {
		return domain.LikeState{}, err
	}
	if payload, err := json.Marshal(state); err == nil {
		s.cache.SetLikeStatus(ctx, username, fingerprint, payload)
	}
	return state, nil
}

func (s *Service) freshState(ctx context.Context, username, fingerprint string) (domain.LikeState, error) {
	liked, err := s.likes.GetRecord(ctx, username, fingerprint)
	if err != nil {
		return domain.LikeState{}, err
	}
	agg, err := s.likes.GetAggregate(ctx, username)
	if err != nil {
		return domain.LikeState{}, err
	}
	return domain.LikeState{Liked: liked, Count: agg.TotalLikes}, nil
}

// SetCount — админская перезапись счётчика лайков канала. В отличие от
// Toggle вес здесь перезаписывается, а не сдвигается: оператор задаёт
// точное целевое состояние.
func (s *Service) SetCount(ctx context.Context, username string, total int64) error {
	username = domain.NormalizeUsername(username)
	if !domain.ValidUsername(username) {
		return fmt.Errorf("%w: username", domain.ErrInvalidArgument)
	}
	if total < 0 {
		return fmt.Errorf("%w: счётчик лайков не может быть отрицательным", domain.ErrInvalidArgument)
	}

	ch, err := s.channels.GetByUsername(ctx, username)
	if err != nil {
		return err
	}

	now := s.now()
	if err := s.likes.SetAggregate(ctx, username, total, now); err != nil {
		return err
	}
	newBonus := domain.LikeBonus(total)
	reason := fmt.Sprintf("ручная установка лайков: %d", total)
	if err := s.channels.AddWeightDelta(ctx, username, newBonus-ch.Weight.LikeBonus, newBonus, total, reason, now); err != nil {
		return err
	}

	metrics.WeightMutations.WithLabelValues("set_likes").Inc()
	s.cache.InvalidateListings(ctx)
	s.log.Info().Str("username", username).Int64("total", total).Msg("счётчик лайков перезаписан")
	return nil
}
