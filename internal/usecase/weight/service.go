package weight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tg-channel-nav/internal/domain"
	"tg-channel-nav/internal/infra/metrics"
)

// DefaultBatchChunk — размер пакета для массовых обновлений веса.
const DefaultBatchChunk = 500

// Service — операторские мутации ранжирующего балла: перезапись,
// понижение с историей, восстановление, повышение и пакетные варианты.
// Вся арифметика целочисленная с округлением вниз.
type Service struct {
	channels domain.ChannelRepo
	cache    domain.DirectoryCache
	log      zerolog.Logger

	batchChunk int
	now        func() time.Time
}

// New создаёт сервис веса.
func New(channels domain.ChannelRepo, cache domain.DirectoryCache, logger zerolog.Logger, batchChunk int) *Service {
	if batchChunk <= 0 {
		batchChunk = DefaultBatchChunk
	}
	return &Service{
		channels:   channels,
		cache:      cache,
		log:        logger.With().Str("component", "weight").Logger(),
		batchChunk: batchChunk,
		now:        time.Now,
	}
}

// SetWeight перезаписывает вес канала напрямую.
func (s *Service) SetWeight(ctx context.Context, username string, value int64, reason string) error {
	username = domain.NormalizeUsername(username)
	if !domain.ValidUsername(username) {
		return fmt.Errorf("%w: username", domain.ErrInvalidArgument)
	}
	if value < 0 {
		return fmt.Errorf("%w: вес не может быть отрицательным", domain.ErrInvalidArgument)
	}
	if reason == "" {
		reason = "ручная установка веса"
	}

	if err := s.channels.SetWeightValue(ctx, username, value, reason, s.now()); err != nil {
		return err
	}
	metrics.WeightMutations.WithLabelValues("set").Inc()
	s.cache.InvalidateListings(ctx)
	s.log.Info().Str("username", username).Int64("value", value).Msg("вес перезаписан")
	return nil
}

// Demote понижает вес на percentage процентов от текущего значения.
// Операция повторяемая: каждый вызов добавляет раунд в историю и
// умножает уже пониженный вес. Снимок исходного веса делает только
// первый раунд.
func (s *Service) Demote(ctx context.Context, username string, percentage int, reason string) (domain.DemoteRecord, error) {
	username = domain.NormalizeUsername(username)
	if !domain.ValidUsername(username) {
		return domain.DemoteRecord{}, fmt.Errorf("%w: username", domain.ErrInvalidArgument)
	}
	if percentage < 1 || percentage > 100 {
		return domain.DemoteRecord{}, fmt.Errorf("%w: процент понижения должен быть от 1 до 100", domain.ErrInvalidArgument)
	}

	ch, err := s.channels.GetByUsername(ctx, username)
	if err != nil {
		return domain.DemoteRecord{}, err
	}

	before := ch.Weight.Value
	rec := domain.DemoteRecord{
		Percentage: percentage,
		Before:     before,
		After:      before * int64(100-percentage) / 100,
		AppliedAt:  s.now(),
	}
	if reason == "" {
		reason = fmt.Sprintf("понижение на %d%%", percentage)
	}

	if err := s.channels.ApplyDemotion(ctx, username, rec, reason); err != nil {
		return domain.DemoteRecord{}, err
	}
	metrics.WeightMutations.WithLabelValues("demote").Inc()
	s.cache.InvalidateListings(ctx)
	s.log.Info().Str("username", username).Int("percentage", percentage).
		Int64("before", rec.Before).Int64("after", rec.After).Msg("вес понижен")
	return rec, nil
}

// Restore откатывает вес к значению до первого раунда понижения и
// очищает историю. Промежуточные повышения и перезаписи при этом
// теряются. Непониженный канал — domain.ErrNotDemoted.
func (s *Service) Restore(ctx context.Context, username string, reason string) (int64, error) {
	username = domain.NormalizeUsername(username)
	if !domain.ValidUsername(username) {
		return 0, fmt.Errorf("%w: username", domain.ErrInvalidArgument)
	}
	if reason == "" {
		reason = "восстановление после понижения"
	}

	restored, err := s.channels.ResetDemotion(ctx, username, reason, s.now())
	if errors.Is(err, domain.ErrNotDemoted) {
		// Различаем «не понижен» и «не существует».
		if _, getErr := s.channels.GetByUsername(ctx, username); getErr != nil {
			return 0, getErr
		}
		return 0, domain.ErrNotDemoted
	}
	if err != nil {
		return 0, err
	}
	metrics.WeightMutations.WithLabelValues("restore").Inc()
	s.cache.InvalidateListings(ctx)
	s.log.Info().Str("username", username).Int64("restored", restored).Msg("вес восстановлен")
	return restored, nil
}

// Promote повышает вес в одном из двух режимов: percentage прибавляет
// amount процентов от текущего значения (не более PromoteMaxPercent),
// fixed прибавляет amount напрямую. Состояние понижения операция не
// трогает. Пустой mode трактуется как percentage.
func (s *Service) Promote(ctx context.Context, username, mode string, amount int64, reason string) (int64, error) {
	username = domain.NormalizeUsername(username)
	if !domain.ValidUsername(username) {
		return 0, fmt.Errorf("%w: username", domain.ErrInvalidArgument)
	}
	switch mode {
	case "", domain.PromoteModePercentage:
		mode = domain.PromoteModePercentage
		if amount < 1 || amount > domain.PromoteMaxPercent {
			return 0, fmt.Errorf("%w: процент повышения должен быть от 1 до %d", domain.ErrInvalidArgument, domain.PromoteMaxPercent)
		}
	case domain.PromoteModeFixed:
		if amount <= 0 {
			return 0, fmt.Errorf("%w: фиксированная прибавка должна быть положительной", domain.ErrInvalidArgument)
		}
	default:
		return 0, fmt.Errorf("%w: неизвестный режим повышения %q", domain.ErrInvalidArgument, mode)
	}

	ch, err := s.channels.GetByUsername(ctx, username)
	if err != nil {
		return 0, err
	}
	var after int64
	if mode == domain.PromoteModeFixed {
		after = ch.Weight.Value + amount
		if reason == "" {
			reason = fmt.Sprintf("повышение на %d", amount)
		}
	} else {
		after = ch.Weight.Value * (100 + amount) / 100
		if reason == "" {
			reason = fmt.Sprintf("повышение на %d%%", amount)
		}
	}

	if err := s.channels.SetWeightValue(ctx, username, after, reason, s.now()); err != nil {
		return 0, err
	}
	metrics.WeightMutations.WithLabelValues("promote").Inc()
	s.cache.InvalidateListings(ctx)
	s.log.Info().Str("username", username).Str("mode", mode).
		Int64("amount", amount).Int64("after", after).Msg("вес повышен")
	return after, nil
}

// BatchDemote понижает вес каждого канала из списка. Сбой одного канала
// не прерывает остальные.
func (s *Service) BatchDemote(ctx context.Context, usernames []string, percentage int, reason string) domain.BatchResult {
	var result domain.BatchResult
	for _, username := range usernames {
		rec, err := s.Demote(ctx, username, percentage, reason)
		if err != nil {
			result.Failed = append(result.Failed, domain.BatchItem{
				Username: domain.NormalizeUsername(username),
				Reason:   err.Error(),
			})
			continue
		}
		result.Success = append(result.Success, domain.BatchItem{
			Username: domain.NormalizeUsername(username),
			Before:   rec.Before,
			After:    rec.After,
		})
	}
	return result
}

// BatchRestore восстанавливает вес каждого канала из списка.
// Непониженные каналы попадают в Skipped.
func (s *Service) BatchRestore(ctx context.Context, usernames []string, reason string) domain.BatchResult {
	var result domain.BatchResult
	for _, username := range usernames {
		restored, err := s.Restore(ctx, username, reason)
		switch {
		case errors.Is(err, domain.ErrNotDemoted):
			result.Skipped = append(result.Skipped, domain.BatchItem{
				Username: domain.NormalizeUsername(username),
				Reason:   "канал не был понижен",
			})
		case err != nil:
			result.Failed = append(result.Failed, domain.BatchItem{
				Username: domain.NormalizeUsername(username),
				Reason:   err.Error(),
			})
		default:
			result.Success = append(result.Success, domain.BatchItem{
				Username: domain.NormalizeUsername(username),
				After:    restored,
			})
		}
	}
	return result
}

// BatchPromote повышает вес каждого канала из списка в указанном режиме.
func (s *Service) BatchPromote(ctx context.Context, usernames []string, mode string, amount int64, reason string) domain.BatchResult {
	var result domain.BatchResult
	for _, username := range usernames {
		after, err := s.Promote(ctx, username, mode, amount, reason)
		if err != nil {
			result.Failed = append(result.Failed, domain.BatchItem{
				Username: domain.NormalizeUsername(username),
				Reason:   err.Error(),
			})
			continue
		}
		result.Success = append(result.Success, domain.BatchItem{
			Username: domain.NormalizeUsername(username),
			After:    after,
		})
	}
	return result
}

// LanguageDemoteResult — итог пакетного понижения по языку.
type LanguageDemoteResult struct {
	Language domain.Language `json:"language"`
	Matched  int             `json:"matched"`
	Updated  int64           `json:"updated"`
}

// BatchByLanguage понижает вес всех каналов, чьё отображаемое имя
// классифицировано как language. Путь пакетный и необратимый: история
// понижений не ведётся, в документе остаётся только плоская причина.
func (s *Service) BatchByLanguage(ctx context.Context, language domain.Language, percentage int, reason string) (LanguageDemoteResult, error) {
	if !language.Valid() {
		return LanguageDemoteResult{}, fmt.Errorf("%w: неизвестный язык %q", domain.ErrInvalidArgument, language)
	}
	if percentage < 1 || percentage > 100 {
		return LanguageDemoteResult{}, fmt.Errorf("%w: процент понижения должен быть от 1 до 100", domain.ErrInvalidArgument)
	}
	if reason == "" {
		reason = fmt.Sprintf("пакетное понижение языка %s на %d%%", language, percentage)
	}

	names, err := s.channels.ListNames(ctx)
	if err != nil {
		return LanguageDemoteResult{}, err
	}
	var matched []string
	for _, n := range names {
		if domain.ClassifyName(n.Name) == language {
			matched = append(matched, n.Username)
		}
	}

	result := LanguageDemoteResult{Language: language, Matched: len(matched)}
	now := s.now()
	for start := 0; start < len(matched); start += s.batchChunk {
		end := start + s.batchChunk
		if end > len(matched) {
			end = len(matched)
		}
		updated, err := s.channels.MultiplyWeights(ctx, matched[start:end], percentage, reason, now)
		if err != nil {
			// Часть пакетов могла примениться; отдаём фактический счётчик.
			s.log.Error().Err(err).Str("language", string(language)).
				Int64("updated", result.Updated).Msg("пакетное понижение прервано")
			s.cache.InvalidateListings(ctx)
			return result, err
		}
		result.Updated += updated
	}

	metrics.WeightMutations.WithLabelValues("demote_language").Inc()
	s.cache.InvalidateListings(ctx)
	s.log.Info().Str("language", string(language)).Int("matched", result.Matched).
		Int64("updated", result.Updated).Msg("пакетное понижение по языку")
	return result, nil
}

// LanguageStatistics возвращает число каналов на каждую языковую метку.
func (s *Service) LanguageStatistics(ctx context.Context) (map[domain.Language]int, error) {
	names, err := s.channels.ListNames(ctx)
	if err != nil {
		return nil, err
	}
	stats := make(map[domain.Language]int, len(domain.Languages()))
	for _, l := range domain.Languages() {
		stats[l] = 0
	}
	for _, n := range names {
		stats[domain.ClassifyName(n.Name)]++
	}
	return stats, nil
}
