package domain

import "time"

// Пороговые значения бизнес-правил веса.
const (
	// LikeBonusPerLike — вклад одного лайка в вес канала.
	LikeBonusPerLike int64 = 100
	// LikeBonusCap — максимальная добавка веса от лайков.
	LikeBonusCap int64 = 5_000_000
	// PromoteMaxPercent — предел процентного повышения за одну операцию.
	PromoteMaxPercent = 1000
)

// Режимы повышения веса: процент от текущего значения либо
// фиксированная прибавка.
const (
	PromoteModePercentage = "percentage"
	PromoteModeFixed      = "fixed"
)

// DemoteRecord описывает один раунд понижения веса.
type DemoteRecord struct {
	Percentage int       `json:"percentage"`
	Before     int64     `json:"before"`
	After      int64     `json:"after"`
	AppliedAt  time.Time `json:"applied_at"`
}

// Weight — ранжирующий балл канала и его составляющие.
type Weight struct {
	Value           int64
	BaseWeight      int64
	GrowthBonus     int64
	AbnormalPenalty int64
	LikeBonus       int64
	Demoted         bool
	DemoteCount     int
	OriginalWeight  *int64
	DemoteHistory   []DemoteRecord
	LastCalculated  *time.Time
	Reason          string
}

// Growth хранит метрики роста аудитории, которые заполняет краулер.
type Growth struct {
	Last7Days      int64   `json:"last_7_days"`
	Last30Days     int64   `json:"last_30_days"`
	AvgDailyGrowth float64 `json:"avg_daily_growth"`
	GrowthRate     float64 `json:"growth_rate"`
	IsGrowing      bool    `json:"is_growing"`
}

// ChannelStats — публичная статистика канала.
type ChannelStats struct {
	Members int64
	Likes   int64
	Growth  Growth
}

// Visibility — два независимых флага доступности канала.
// Active выставляет краулер (канал достижим), AdminHidden — оператор.
type Visibility struct {
	Active      bool
	AdminHidden bool
}

// IsListed сообщает, попадает ли канал в публичную выдачу.
// Единственная точка истины и для листинга, и для статистики.
func (v Visibility) IsListed() bool {
	return v.Active && !v.AdminHidden
}

// Channel — одна запись каталога.
type Channel struct {
	Username    string
	Name        string
	Description string
	Avatar      string
	Verified    bool
	Stats       ChannelStats
	Weight      Weight
	Visibility  Visibility
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LikeAggregate — счётчики лайков одного канала.
type LikeAggregate struct {
	ChannelUsername string
	TotalLikes      int64
	UniqueDevices   int64
	LastLikeAt      *time.Time
	UpdatedAt       time.Time
}

// LikeRecord — факт лайка конкретного устройства; наличие записи и есть «лайкнуто».
type LikeRecord struct {
	ChannelUsername string
	Fingerprint     string
	LikedAt         time.Time
}

// LikeState — ответ на запрос статуса лайка.
type LikeState struct {
	Liked bool  `json:"liked"`
	Count int64 `json:"count"`
}

// LikeBonus возвращает добавку веса за totalLikes лайков с учётом потолка.
func LikeBonus(totalLikes int64) int64 {
	bonus := totalLikes * LikeBonusPerLike
	if bonus > LikeBonusCap {
		return LikeBonusCap
	}
	if bonus < 0 {
		return 0
	}
	return bonus
}

// DirectoryStats — сводка по публичной части каталога.
type DirectoryStats struct {
	Total        int64 `json:"total"`
	TotalMembers int64 `json:"total_members"`
}

// AdminStats — сводка для админки: учитывает и скрытые каналы.
type AdminStats struct {
	Total         int64 `json:"total"`
	TotalMembers  int64 `json:"total_members"`
	ActiveCount   int64 `json:"active_count"`
	DisabledCount int64 `json:"disabled_count"`
}

// Pagination описывает страницу выдачи.
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
	HasMore  bool  `json:"has_more"`
}

// ChannelPage — страница каталога вместе со сводкой.
type ChannelPage struct {
	Channels   []Channel      `json:"channels"`
	Stats      DirectoryStats `json:"stats"`
	Pagination Pagination     `json:"pagination"`
	Keyword    string         `json:"keyword,omitempty"`
}

// ChannelName — минимальная проекция для языковой классификации.
type ChannelName struct {
	Username string
	Name     string
}

// SearchKeyword — сохранённый поисковый запрос для внешнего краулера.
type SearchKeyword struct {
	Keyword       string
	TotalSearches int64
	LastSearchAt  *time.Time
	CreatedAt     time.Time
}

// ChannelSnapshot — снимок канала от краулера (очередь инжеста).
type ChannelSnapshot struct {
	JobID       string  `json:"job_id"`
	Username    string  `json:"username"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Avatar      string  `json:"avatar"`
	Members     int64   `json:"members"`
	Verified    bool    `json:"verified"`
	Active      bool    `json:"active"`
	Growth      *Growth `json:"growth,omitempty"`
}
