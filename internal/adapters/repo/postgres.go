package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"tg-channel-nav/internal/domain"
	"tg-channel-nav/internal/infra/metrics"
)

// Postgres реализует репозитории каталога на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.ChannelRepo = (*Postgres)(nil)
	_ domain.LikeRepo    = (*Postgres)(nil)
	_ domain.KeywordRepo = (*Postgres)(nil)
	_ domain.IngestRepo  = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if _, ok := parent.Deadline(); ok {
		return parent, func() {}
	}
	return context.WithTimeout(parent, 5*time.Second)
}

// sortColumns сопоставляет поля сортировки каталога колонкам таблицы.
// Значения не подставляются в SQL из пользовательского ввода напрямую.
var sortColumns = map[string]string{
	"weight":  "weight_value",
	"members": "members",
	"created": "created_at",
	"updated": "updated_at",
}

const channelColumns = `username, name, description, avatar, verified,
members, likes, growth,
weight_value, base_weight, growth_bonus, abnormal_penalty, like_bonus,
demoted, demote_count, original_weight, demote_history, weight_reason, weight_calculated_at,
active, admin_hidden, created_at, updated_at`

const listedCondition = `active AND NOT admin_hidden`

func scanChannel(row pgx.Row) (domain.Channel, error) {
	var (
		ch           domain.Channel
		name         sql.NullString
		description  sql.NullString
		avatar       sql.NullString
		growthJSON   []byte
		original     sql.NullInt64
		historyJSON  []byte
		calculatedAt sql.NullTime
	)
	err := row.Scan(
		&ch.Username, &name, &description, &avatar, &ch.Verified,
		&ch.Stats.Members, &ch.Stats.Likes, &growthJSON,
		&ch.Weight.Value, &ch.Weight.BaseWeight, &ch.Weight.GrowthBonus, &ch.Weight.AbnormalPenalty, &ch.Weight.LikeBonus,
		&ch.Weight.Demoted, &ch.Weight.DemoteCount, &original, &historyJSON, &ch.Weight.Reason, &calculatedAt,
		&ch.Visibility.Active, &ch.Visibility.AdminHidden, &ch.CreatedAt, &ch.UpdatedAt,
	)
	if err != nil {
		return domain.Channel{}, err
	}
	if name.Valid {
		ch.Name = name.String
	}
	if description.Valid {
		ch.Description = description.String
	}
	if avatar.Valid {
		ch.Avatar = avatar.String
	}
	if original.Valid {
		v := original.Int64
		ch.Weight.OriginalWeight = &v
	}
	if calculatedAt.Valid {
		ts := calculatedAt.Time
		ch.Weight.LastCalculated = &ts
	}
	if len(growthJSON) > 0 {
		if err := json.Unmarshal(growthJSON, &ch.Stats.Growth); err != nil {
			return domain.Channel{}, fmt.Errorf("decode growth: %w", err)
		}
	}
	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &ch.Weight.DemoteHistory); err != nil {
			return domain.Channel{}, fmt.Errorf("decode demote history: %w", err)
		}
	}
	return ch, nil
}

// GetByUsername возвращает канал по username.
func (p *Postgres) GetByUsername(ctx context.Context, username string) (domain.Channel, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `SELECT `+channelColumns+` FROM channels WHERE username=$1`, username)
	ch, err := scanChannel(row)
	metrics.ObserveNetworkRequest("postgres", "channels_get", "channels", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Channel{}, domain.ErrNotFound
	}
	return ch, err
}

// List возвращает страницу каталога.
func (p *Postgres) List(ctx context.Context, q domain.ListQuery) ([]domain.Channel, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	column, ok := sortColumns[q.SortBy]
	if !ok {
		column = sortColumns[domain.DefaultSortBy]
	}
	where := ""
	if q.ListedOnly {
		where = `WHERE ` + listedCondition
	}
	offset := (q.Page - 1) * q.PageSize

	start := time.Now()
	rows, err := p.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM channels %s ORDER BY %s DESC, username ASC LIMIT $1 OFFSET $2`,
		channelColumns, where, column,
	), q.PageSize, offset)
	metrics.ObserveNetworkRequest("postgres", "channels_list", "channels", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectChannels(rows)
}

// Search возвращает страницу поиска и общее число совпадений.
func (p *Postgres) Search(ctx context.Context, q domain.SearchQuery) ([]domain.Channel, int64, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	column, ok := sortColumns[q.SortBy]
	if !ok {
		column = sortColumns[domain.DefaultSortBy]
	}

	conditions := make([]string, 0, 2)
	args := make([]any, 0, 3)
	if q.ListedOnly {
		conditions = append(conditions, listedCondition)
	}
	if q.Keyword != "" {
		args = append(args, "%"+escapeLike(q.Keyword)+"%")
		match := fmt.Sprintf(`name ILIKE $%d`, len(args))
		if q.IncludeUsername {
			match = fmt.Sprintf(`(name ILIKE $%d OR username ILIKE $%d)`, len(args), len(args))
		}
		conditions = append(conditions, match)
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	start := time.Now()
	err := p.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM channels %s`, where), args...).Scan(&total)
	metrics.ObserveNetworkRequest("postgres", "channels_search_count", "channels", start, err)
	if err != nil {
		return nil, 0, err
	}

	offset := (q.Page - 1) * q.PageSize
	args = append(args, q.PageSize, offset)
	start = time.Now()
	rows, err := p.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM channels %s ORDER BY %s DESC, username ASC LIMIT $%d OFFSET $%d`,
		channelColumns, where, column, len(args)-1, len(args),
	), args...)
	metrics.ObserveNetworkRequest("postgres", "channels_search", "channels", start, err)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	channels, err := collectChannels(rows)
	return channels, total, err
}

func collectChannels(rows pgx.Rows) ([]domain.Channel, error) {
	var channels []domain.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}

// DirectoryStats считает сводку по публичной части каталога.
func (p *Postgres) DirectoryStats(ctx context.Context) (domain.DirectoryStats, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var stats domain.DirectoryStats
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT COUNT(*), COALESCE(SUM(members), 0)
FROM channels WHERE `+listedCondition,
	).Scan(&stats.Total, &stats.TotalMembers)
	metrics.ObserveNetworkRequest("postgres", "channels_stats", "channels", start, err)
	return stats, err
}

// AdminStats считает сводку по всем каналам, включая скрытые.
func (p *Postgres) AdminStats(ctx context.Context) (domain.AdminStats, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var stats domain.AdminStats
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT COUNT(*),
       COALESCE(SUM(members), 0),
       COUNT(*) FILTER (WHERE NOT admin_hidden),
       COUNT(*) FILTER (WHERE admin_hidden)
FROM channels`,
	).Scan(&stats.Total, &stats.TotalMembers, &stats.ActiveCount, &stats.DisabledCount)
	metrics.ObserveNetworkRequest("postgres", "channels_admin_stats", "channels", start, err)
	return stats, err
}

// ListNames возвращает username и отображаемое имя всех каналов.
func (p *Postgres) ListNames(ctx context.Context) ([]domain.ChannelName, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `SELECT username, COALESCE(name, '') FROM channels ORDER BY username`)
	metrics.ObserveNetworkRequest("postgres", "channels_list_names", "channels", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []domain.ChannelName
	for rows.Next() {
		var n domain.ChannelName
		if err := rows.Scan(&n.Username, &n.Name); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// Insert создаёт новый канал; дубликат username — domain.ErrConflict.
func (p *Postgres) Insert(ctx context.Context, ch domain.Channel) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	growthJSON, err := json.Marshal(ch.Stats.Growth)
	if err != nil {
		return fmt.Errorf("encode growth: %w", err)
	}

	start := time.Now()
	_, err = p.pool.Exec(ctx, `
INSERT INTO channels (username, name, description, avatar, verified,
                      members, likes, growth,
                      weight_value, base_weight, weight_reason, weight_calculated_at,
                      active, admin_hidden)
VALUES ($1, NULLIF($2,''), NULLIF($3,''), NULLIF($4,''), $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
`, ch.Username, ch.Name, ch.Description, ch.Avatar, ch.Verified,
		ch.Stats.Members, ch.Stats.Likes, growthJSON,
		ch.Weight.Value, ch.Weight.BaseWeight, ch.Weight.Reason, ch.Weight.LastCalculated,
		ch.Visibility.Active, ch.Visibility.AdminHidden)
	metrics.ObserveNetworkRequest("postgres", "channels_insert", "channels", start, err)
	if pgErr, ok := asPgError(err); ok && pgErr.Code == "23505" {
		return domain.ErrConflict
	}
	return err
}

// UpsertSnapshot применяет снимок краулера. На первой встрече канал
// получает weight_value = base_weight = наблюдаемое число подписчиков;
// у существующих каналов вес не трогается.
func (p *Postgres) UpsertSnapshot(ctx context.Context, snap domain.ChannelSnapshot) (bool, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	growth := domain.Growth{}
	if snap.Growth != nil {
		growth = *snap.Growth
	}
	growthJSON, err := json.Marshal(growth)
	if err != nil {
		return false, fmt.Errorf("encode growth: %w", err)
	}

	var created bool
	start := time.Now()
	err = p.pool.QueryRow(ctx, `
INSERT INTO channels (username, name, description, avatar, verified,
                      members, growth,
                      weight_value, base_weight, weight_reason, weight_calculated_at,
                      active)
VALUES ($1, NULLIF($2,''), NULLIF($3,''), NULLIF($4,''), $5, $6, $7, $6, $6, 'первичный обход краулера', now(), $8)
ON CONFLICT (username) DO UPDATE SET
    name = COALESCE(NULLIF(EXCLUDED.name, ''), channels.name),
    description = COALESCE(NULLIF(EXCLUDED.description, ''), channels.description),
    avatar = COALESCE(NULLIF(EXCLUDED.avatar, ''), channels.avatar),
    verified = EXCLUDED.verified,
    members = EXCLUDED.members,
    growth = EXCLUDED.growth,
    active = EXCLUDED.active,
    updated_at = now()
RETURNING (xmax = 0) AS inserted
`, snap.Username, snap.Name, snap.Description, snap.Avatar, snap.Verified,
		snap.Members, growthJSON, snap.Active).Scan(&created)
	metrics.ObserveNetworkRequest("postgres", "channels_upsert_snapshot", "channels", start, err)
	return created, err
}

// SetAdminHidden выставляет операторский флаг скрытия.
func (p *Postgres) SetAdminHidden(ctx context.Context, username string, hidden bool) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx,
		`UPDATE channels SET admin_hidden=$2, updated_at=now() WHERE username=$1`,
		username, hidden)
	metrics.ObserveNetworkRequest("postgres", "channels_set_hidden", "channels", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetWeightValue — админская перезапись веса.
func (p *Postgres) SetWeightValue(ctx context.Context, username string, value int64, reason string, at time.Time) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
UPDATE channels
SET weight_value=$2, weight_reason=$3, weight_calculated_at=$4, updated_at=now()
WHERE username=$1
`, username, value, reason, at)
	metrics.ObserveNetworkRequest("postgres", "weight_set", "channels", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ApplyDemotion применяет раунд понижения одним атомарным обновлением:
// история дописывается, счётчик инкрементируется, снимок исходного веса
// делается только на первом раунде (COALESCE).
func (p *Postgres) ApplyDemotion(ctx context.Context, username string, rec domain.DemoteRecord, reason string) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	recJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode demote record: %w", err)
	}

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
UPDATE channels
SET weight_value=$2,
    demoted=true,
    demote_count=demote_count + 1,
    original_weight=COALESCE(original_weight, $3),
    demote_history=demote_history || $4::jsonb,
    weight_reason=$5,
    weight_calculated_at=$6,
    updated_at=now()
WHERE username=$1
`, username, rec.After, rec.Before, recJSON, reason, rec.AppliedAt)
	metrics.ObserveNetworkRequest("postgres", "weight_demote", "channels", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ResetDemotion атомарно откатывает вес к первому снимку и чистит все
// поля понижения. Возвращает восстановленное значение.
func (p *Postgres) ResetDemotion(ctx context.Context, username string, reason string, at time.Time) (int64, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var restored int64
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
UPDATE channels
SET weight_value=original_weight,
    demoted=false,
    demote_count=0,
    original_weight=NULL,
    demote_history='[]'::jsonb,
    weight_reason=$2,
    weight_calculated_at=$3,
    updated_at=now()
WHERE username=$1 AND demoted AND original_weight IS NOT NULL
RETURNING weight_value
`, username, reason, at).Scan(&restored)
	metrics.ObserveNetworkRequest("postgres", "weight_restore", "channels", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrNotDemoted
	}
	return restored, err
}

// AddWeightDelta прибавляет дельту к весу, не перезаписывая значение:
// параллельные ручные правки веса при этом не теряются.
func (p *Postgres) AddWeightDelta(ctx context.Context, username string, delta, likeBonus, totalLikes int64, reason string, at time.Time) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
UPDATE channels
SET weight_value=weight_value + $2,
    like_bonus=$3,
    likes=$4,
    weight_reason=$5,
    weight_calculated_at=$6,
    updated_at=now()
WHERE username=$1
`, username, delta, likeBonus, totalLikes, reason, at)
	metrics.ObserveNetworkRequest("postgres", "weight_add_delta", "channels", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MultiplyWeights понижает вес каждого канала из списка одним пакетным
// обновлением: value = floor(value * (100-percent) / 100). Историю
// понижений этот путь не ведёт.
func (p *Postgres) MultiplyWeights(ctx context.Context, usernames []string, percent int, reason string, at time.Time) (int64, error) {
	if len(usernames) == 0 {
		return 0, nil
	}
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
UPDATE channels
SET weight_value=weight_value * (100 - $2::bigint) / 100,
    weight_reason=$3,
    weight_calculated_at=$4,
    updated_at=now()
WHERE username = ANY($1)
`, usernames, percent, reason, at)
	metrics.ObserveNetworkRequest("postgres", "weight_multiply_bulk", "channels", start, err)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// GetRecord проверяет наличие лайка пары (канал, устройство).
func (p *Postgres) GetRecord(ctx context.Context, username, fingerprint string) (bool, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var exists bool
	start := time.Now()
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM like_records WHERE channel_username=$1 AND fingerprint=$2)`,
		username, fingerprint).Scan(&exists)
	metrics.ObserveNetworkRequest("postgres", "like_records_get", "like_records", start, err)
	return exists, err
}

// InsertRecord вставляет запись лайка; false означает, что конкурентный
// запрос успел раньше (уникальный ключ сработал).
func (p *Postgres) InsertRecord(ctx context.Context, username, fingerprint string, at time.Time) (bool, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
INSERT INTO like_records (channel_username, fingerprint, liked_at)
VALUES ($1, $2, $3)
ON CONFLICT (channel_username, fingerprint) DO NOTHING
`, username, fingerprint, at)
	metrics.ObserveNetworkRequest("postgres", "like_records_insert", "like_records", start, err)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteRecord удаляет запись лайка; false — записи уже не было.
func (p *Postgres) DeleteRecord(ctx context.Context, username, fingerprint string) (bool, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM like_records WHERE channel_username=$1 AND fingerprint=$2`,
		username, fingerprint)
	metrics.ObserveNetworkRequest("postgres", "like_records_delete", "like_records", start, err)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// GetAggregate возвращает счётчики лайков; отсутствие строки — нулевой агрегат.
func (p *Postgres) GetAggregate(ctx context.Context, username string) (domain.LikeAggregate, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	agg := domain.LikeAggregate{ChannelUsername: username}
	var lastLikeAt sql.NullTime
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT total_likes, unique_devices, last_like_at, updated_at
FROM like_aggregates WHERE channel_username=$1
`, username).Scan(&agg.TotalLikes, &agg.UniqueDevices, &lastLikeAt, &agg.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", "like_aggregates_get", "like_aggregates", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LikeAggregate{ChannelUsername: username}, nil
	}
	if lastLikeAt.Valid {
		ts := lastLikeAt.Time
		agg.LastLikeAt = &ts
	}
	return agg, err
}

// AdjustAggregate атомарно сдвигает счётчики на delta и возвращает новое
// значение totalLikes. Чтение-изменение-запись здесь недопустимо:
// конкурентные лайки с разных устройств не должны терять обновления.
func (p *Postgres) AdjustAggregate(ctx context.Context, username string, delta int64, at time.Time) (int64, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var total int64
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO like_aggregates (channel_username, total_likes, unique_devices, last_like_at)
VALUES ($1, GREATEST($2, 0), GREATEST($2, 0), $3)
ON CONFLICT (channel_username) DO UPDATE SET
    total_likes = like_aggregates.total_likes + $2,
    unique_devices = like_aggregates.unique_devices + $2,
    last_like_at = CASE WHEN $2 > 0 THEN $3 ELSE like_aggregates.last_like_at END,
    updated_at = now()
RETURNING total_likes
`, username, delta, at).Scan(&total)
	metrics.ObserveNetworkRequest("postgres", "like_aggregates_adjust", "like_aggregates", start, err)
	return total, err
}

// SetAggregate — админская перезапись счётчиков лайков.
func (p *Postgres) SetAggregate(ctx context.Context, username string, total int64, at time.Time) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO like_aggregates (channel_username, total_likes, unique_devices, last_like_at)
VALUES ($1, $2, $2, $3)
ON CONFLICT (channel_username) DO UPDATE SET
    total_likes = EXCLUDED.total_likes,
    unique_devices = EXCLUDED.unique_devices,
    last_like_at = EXCLUDED.last_like_at,
    updated_at = now()
`, username, total, at)
	metrics.ObserveNetworkRequest("postgres", "like_aggregates_set", "like_aggregates", start, err)
	return err
}

// RecordSearchKeyword сохраняет поисковый запрос для внешнего краулера.
func (p *Postgres) RecordSearchKeyword(ctx context.Context, keyword string, at time.Time) (bool, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var isNew bool
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO search_keywords (keyword, total_searches, last_search_at)
VALUES ($1, 1, $2)
ON CONFLICT (keyword) DO UPDATE SET
    total_searches = search_keywords.total_searches + 1,
    last_search_at = $2,
    updated_at = now()
RETURNING (xmax = 0) AS inserted
`, keyword, at).Scan(&isNew)
	metrics.ObserveNetworkRequest("postgres", "search_keywords_upsert", "search_keywords", start, err)
	return isNew, err
}

// AcquireIngestJob регистрирует задачу инжеста; false — дубликат доставки.
func (p *Postgres) AcquireIngestJob(ctx context.Context, jobID string) (bool, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
INSERT INTO ingest_jobs (job_id) VALUES ($1)
ON CONFLICT (job_id) DO NOTHING
`, jobID)
	metrics.ObserveNetworkRequest("postgres", "ingest_jobs_acquire", "ingest_jobs", start, err)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func asPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
