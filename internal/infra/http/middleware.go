package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ipLimiter — подмножество лимитера, нужное middleware.
type ipLimiter interface {
	AllowGlobalIP(ctx context.Context, ip string) bool
	AllowPageIP(ctx context.Context, ip string) bool
	AllowAPI(ctx context.Context, ip, endpoint string) bool
}

// AdminAuthMiddleware сверяет общий секрет админской поверхности.
// Полноценной аутентификации у админки нет — это осознанная граница.
func AdminAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" || r.Header.Get("X-Admin-Token") != token {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"success":false,"message":"нет доступа"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GlobalIPRateLimit отклоняет запросы сверх общего лимита на IP.
func GlobalIPRateLimit(limiter ipLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.AllowGlobalIP(r.Context(), ClientIP(r)) {
				tooManyRequests(w, time.Minute)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PageIPRateLimit ограничивает частоту листания страниц на IP.
func PageIPRateLimit(limiter ipLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.AllowPageIP(r.Context(), ClientIP(r)) {
				tooManyRequests(w, time.Minute)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// APIRateLimit — грубый часовой потолок именованного эндпоинта на IP.
func APIRateLimit(limiter ipLimiter, endpoint string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.AllowAPI(r.Context(), ClientIP(r), endpoint) {
				tooManyRequests(w, time.Hour)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP извлекает реальный адрес клиента с учётом прокси и CDN.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}
	if cfIP := r.Header.Get("CF-Connecting-IP"); cfIP != "" {
		return strings.TrimSpace(cfIP)
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		host = host[:idx]
	}
	return host
}

// tooManyRequests отвечает 429 с подсказкой Retry-After в секундах,
// как того требует RFC 9110.
func tooManyRequests(w http.ResponseWriter, retryAfter time.Duration) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter/time.Second)))
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"success":false,"message":"слишком много запросов"}`))
}
