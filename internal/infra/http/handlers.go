package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"tg-channel-nav/internal/domain"
	"tg-channel-nav/internal/usecase/directory"
	"tg-channel-nav/internal/usecase/likes"
	"tg-channel-nav/internal/usecase/weight"
)

// adminLimiter — подмножество лимитера для админской поверхности.
type adminLimiter interface {
	AllowAdmin(ctx context.Context, identifier string) bool
}

// Handlers связывает HTTP маршруты с сервисами каталога.
type Handlers struct {
	directory *directory.Service
	likes     *likes.Service
	weight    *weight.Service
	limiter   adminLimiter
	log       zerolog.Logger
}

// NewHandlers создаёт обработчики.
func NewHandlers(dir *directory.Service, likeSvc *likes.Service, weightSvc *weight.Service, limiter adminLimiter, logger zerolog.Logger) *Handlers {
	return &Handlers{
		directory: dir,
		likes:     likeSvc,
		weight:    weightSvc,
		limiter:   limiter,
		log:       logger.With().Str("component", "http").Logger(),
	}
}

// Mount вешает публичные и админские маршруты на роутер.
func (h *Handlers) Mount(r chi.Router, adminToken string, ipLimit ipLimiter) {
	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(GlobalIPRateLimit(ipLimit))

			r.With(PageIPRateLimit(ipLimit), APIRateLimit(ipLimit, "channels")).
				Get("/channels", h.listChannels)
			r.With(APIRateLimit(ipLimit, "search")).Get("/channels/search", h.searchChannels)
			r.Get("/channels/{username}", h.getChannel)
			r.Get("/channels/{username}/like", h.likeStatus)
			r.Post("/channels/{username}/like", h.toggleLike)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminAuthMiddleware(adminToken))
			r.Use(h.adminRateLimit)

			r.Get("/channels", h.adminListChannels)
			r.Get("/channels/search", h.adminSearchChannels)
			r.Post("/channels", h.addChannels)
			r.Get("/stats", h.adminStats)
			r.Get("/languages", h.languageStatistics)
			r.Post("/cache/flush", h.flushCache)

			r.Post("/channels/{username}/visibility", h.toggleVisibility)
			r.Post("/channels/{username}/weight", h.setWeight)
			r.Post("/channels/{username}/demote", h.demote)
			r.Post("/channels/{username}/restore", h.restore)
			r.Post("/channels/{username}/promote", h.promote)
			r.Post("/channels/{username}/likes", h.setLikes)

			r.Post("/weights/demote-batch", h.batchDemote)
			r.Post("/weights/restore-batch", h.batchRestore)
			r.Post("/weights/promote-batch", h.batchPromote)
			r.Post("/weights/demote-language", h.demoteByLanguage)
		})
	})
}

func (h *Handlers) adminRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.limiter.AllowAdmin(r.Context(), ClientIP(r)) {
			h.writeError(w, domain.ErrRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) listChannels(w http.ResponseWriter, r *http.Request) {
	page, err := h.directory.List(r.Context(),
		r.URL.Query().Get("sort_by"),
		queryInt(r, "page", 1),
		queryInt(r, "page_size", domain.DefaultPageSize))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, page)
}

func (h *Handlers) searchChannels(w http.ResponseWriter, r *http.Request) {
	page, err := h.directory.Search(r.Context(),
		r.URL.Query().Get("q"),
		r.URL.Query().Get("fingerprint"),
		queryInt(r, "page", 1),
		queryInt(r, "page_size", domain.DefaultPageSize))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, page)
}

func (h *Handlers) getChannel(w http.ResponseWriter, r *http.Request) {
	view, err := h.directory.GetByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, view)
}

func (h *Handlers) likeStatus(w http.ResponseWriter, r *http.Request) {
	state, err := h.likes.Status(r.Context(),
		chi.URLParam(r, "username"),
		r.URL.Query().Get("fingerprint"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, state)
}

func (h *Handlers) toggleLike(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Fingerprint string `json:"fingerprint"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	state, err := h.likes.Toggle(r.Context(), chi.URLParam(r, "username"), req.Fingerprint)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, state)
}

func (h *Handlers) adminListChannels(w http.ResponseWriter, r *http.Request) {
	page, err := h.directory.AdminList(r.Context(),
		r.URL.Query().Get("sort_by"),
		queryInt(r, "page", 1),
		queryInt(r, "page_size", domain.DefaultPageSize),
		r.URL.Query().Get("show_disabled") == "true")
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, page)
}

func (h *Handlers) adminSearchChannels(w http.ResponseWriter, r *http.Request) {
	page, err := h.directory.AdminSearch(r.Context(),
		r.URL.Query().Get("q"),
		queryInt(r, "page", 1),
		queryInt(r, "page_size", domain.DefaultPageSize))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, page)
}

func (h *Handlers) addChannels(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Channels []string `json:"channels"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if len(req.Channels) == 0 {
		h.writeError(w, domain.ErrInvalidArgument)
		return
	}
	h.writeData(w, http.StatusOK, h.directory.ManualAdd(r.Context(), req.Channels))
}

func (h *Handlers) adminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.directory.Stats(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, stats)
}

func (h *Handlers) languageStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.weight.LanguageStatistics(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, stats)
}

func (h *Handlers) flushCache(w http.ResponseWriter, r *http.Request) {
	h.directory.FlushListings(r.Context())
	h.writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) toggleVisibility(w http.ResponseWriter, r *http.Request) {
	hidden, err := h.directory.ToggleVisibility(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, map[string]bool{"admin_hidden": hidden})
}

func (h *Handlers) setWeight(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value  int64  `json:"value"`
		Reason string `json:"reason"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.weight.SetWeight(r.Context(), chi.URLParam(r, "username"), req.Value, req.Reason); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, map[string]int64{"value": req.Value})
}

func (h *Handlers) demote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Percentage int    `json:"percentage"`
		Reason     string `json:"reason"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	rec, err := h.weight.Demote(r.Context(), chi.URLParam(r, "username"), req.Percentage, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, rec)
}

func (h *Handlers) restore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	restored, err := h.weight.Restore(r.Context(), chi.URLParam(r, "username"), req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, map[string]int64{"restored": restored})
}

func (h *Handlers) promote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode   string `json:"mode"`
		Amount int64  `json:"amount"`
		Reason string `json:"reason"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	after, err := h.weight.Promote(r.Context(), chi.URLParam(r, "username"), req.Mode, req.Amount, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, map[string]int64{"value": after})
}

func (h *Handlers) setLikes(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Count int64 `json:"count"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.likes.SetCount(r.Context(), chi.URLParam(r, "username"), req.Count); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, map[string]int64{"count": req.Count})
}

func (h *Handlers) batchDemote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Usernames  []string `json:"usernames"`
		Percentage int      `json:"percentage"`
		Reason     string   `json:"reason"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	h.writeData(w, http.StatusOK, h.weight.BatchDemote(r.Context(), req.Usernames, req.Percentage, req.Reason))
}

func (h *Handlers) batchRestore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Usernames []string `json:"usernames"`
		Reason    string   `json:"reason"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	h.writeData(w, http.StatusOK, h.weight.BatchRestore(r.Context(), req.Usernames, req.Reason))
}

func (h *Handlers) batchPromote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Usernames []string `json:"usernames"`
		Mode      string   `json:"mode"`
		Amount    int64    `json:"amount"`
		Reason    string   `json:"reason"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	h.writeData(w, http.StatusOK, h.weight.BatchPromote(r.Context(), req.Usernames, req.Mode, req.Amount, req.Reason))
}

func (h *Handlers) demoteByLanguage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Language   string `json:"language"`
		Percentage int    `json:"percentage"`
		Reason     string `json:"reason"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.weight.BatchByLanguage(r.Context(), domain.Language(req.Language), req.Percentage, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, result)
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, domain.ErrInvalidArgument)
		return false
	}
	return true
}

type response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func (h *Handlers) writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response{Success: true, Data: data}); err != nil {
		h.log.Error().Err(err).Msg("ответ не сериализован")
	}
}

// writeError сопоставляет классы ошибок ядра статусам ответа.
// Сырые ошибки хранилищ наружу не выходят.
func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "внутренняя ошибка"
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		status, message = http.StatusNotFound, domain.ErrNotFound.Error()
	case errors.Is(err, domain.ErrRateLimited):
		status, message = http.StatusTooManyRequests, domain.ErrRateLimited.Error()
		// Все пользовательские лимиты считаются в минутном окне.
		w.Header().Set("Retry-After", "60")
	case errors.Is(err, domain.ErrNotDemoted):
		status, message = http.StatusConflict, domain.ErrNotDemoted.Error()
	case errors.Is(err, domain.ErrConflict):
		status, message = http.StatusConflict, domain.ErrConflict.Error()
	default:
		h.log.Error().Err(err).Msg("необработанная ошибка запроса")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response{Success: false, Message: message})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
