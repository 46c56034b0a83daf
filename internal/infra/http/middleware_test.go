package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{
			name:    "X-Forwarded-For берёт первый адрес",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"},
			remote:  "10.0.0.2:1234",
			want:    "203.0.113.7",
		},
		{
			name:    "X-Real-IP как запасной",
			headers: map[string]string{"X-Real-IP": "203.0.113.8"},
			remote:  "10.0.0.2:1234",
			want:    "203.0.113.8",
		},
		{
			name:    "CF-Connecting-IP как запасной",
			headers: map[string]string{"CF-Connecting-IP": "203.0.113.9"},
			remote:  "10.0.0.2:1234",
			want:    "203.0.113.9",
		},
		{
			name:   "RemoteAddr без порта",
			remote: "192.0.2.5:4321",
			want:   "192.0.2.5",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r); got != tc.want {
				t.Errorf("ClientIP = %q, ожидалось %q", got, tc.want)
			}
		})
	}
}

func TestAdminAuthMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := AdminAuthMiddleware("secret")(next)

	r := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("без токена: %d, ожидалось 401", w.Code)
	}

	r = httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	r.Header.Set("X-Admin-Token", "wrong")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("с неверным токеном: %d, ожидалось 401", w.Code)
	}

	r = httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	r.Header.Set("X-Admin-Token", "secret")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("с верным токеном: %d, ожидалось 200", w.Code)
	}
}

func TestAdminAuthMiddlewareEmptyToken(t *testing.T) {
	// Пустой секрет закрывает админку целиком, а не открывает её.
	handler := AdminAuthMiddleware("")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	r.Header.Set("X-Admin-Token", "")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("пустой секрет: %d, ожидалось 401", w.Code)
	}
}

type stubIPLimiter struct {
	allowGlobal bool
	allowPage   bool
	allowAPI    bool
}

func (l *stubIPLimiter) AllowGlobalIP(context.Context, string) bool    { return l.allowGlobal }
func (l *stubIPLimiter) AllowPageIP(context.Context, string) bool      { return l.allowPage }
func (l *stubIPLimiter) AllowAPI(context.Context, string, string) bool { return l.allowAPI }

func TestIPRateLimitMiddlewares(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := GlobalIPRateLimit(&stubIPLimiter{allowGlobal: false})(next)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/channels", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("глобальный лимит: %d, ожидалось 429", w.Code)
	}
	// RFC 9110: Retry-After в секундах, не в форме time.Duration.
	if got := w.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, ожидалось \"60\"", got)
	}

	handler = PageIPRateLimit(&stubIPLimiter{allowPage: true})(next)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/channels", nil))
	if w.Code != http.StatusOK {
		t.Errorf("пропуск в пределах лимита: %d", w.Code)
	}

	handler = APIRateLimit(&stubIPLimiter{allowAPI: false}, "channels")(next)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/channels", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("часовой потолок эндпоинта: %d, ожидалось 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "3600" {
		t.Errorf("Retry-After часового окна = %q, ожидалось \"3600\"", got)
	}
}
