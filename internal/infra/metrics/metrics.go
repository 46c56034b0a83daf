package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	CacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nav_cache_hits_total",
		Help: "Попадания в кэш по уровням",
	}, []string{"tier", "namespace"})

	CacheMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nav_cache_misses_total",
		Help: "Промахи кэша по пространствам ключей",
	}, []string{"namespace"})

	CacheInvalidations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nav_cache_invalidations_total",
		Help: "Массовые сбросы листингового кэша",
	})

	RateLimitRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nav_ratelimit_rejections_total",
		Help: "Отклонённые лимитером запросы по областям",
	}, []string{"scope"})

	LikeToggles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nav_like_toggles_total",
		Help: "Переключения лайков",
	}, []string{"direction"})

	WeightMutations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nav_weight_mutations_total",
		Help: "Мутации веса каналов по операциям",
	}, []string{"operation"})

	IngestJobs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nav_ingest_jobs_total",
		Help: "Обработанные задачи инжеста",
	}, []string{"status"})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		CacheHits,
		CacheMisses,
		CacheInvalidations,
		RateLimitRejections,
		LikeToggles,
		WeightMutations,
		IngestJobs,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}
