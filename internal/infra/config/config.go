package config

import (
	"log"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов каталога.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	Port        int    `envconfig:"PORT" default:"8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	PGDSN     string `envconfig:"PG_DSN"`
	RedisAddr string `envconfig:"REDIS_ADDR"`
	AMQPURL   string `envconfig:"AMQP_URL"`

	// AdminToken — общий секрет админской поверхности.
	AdminToken string `envconfig:"ADMIN_TOKEN"`

	Cache struct {
		MemoryTTLSeconds  int `envconfig:"CACHE_MEMORY_TTL" default:"30"`
		ListingTTLSeconds int `envconfig:"CACHE_LISTING_TTL" default:"300"`
		SearchTTLSeconds  int `envconfig:"CACHE_SEARCH_TTL" default:"600"`
	} `envconfig:""`

	Limits struct {
		APIMaxPerHour  int `envconfig:"LIMIT_API_PER_HOUR" default:"10000"`
		BatchChunkSize int `envconfig:"WEIGHT_BATCH_CHUNK" default:"500"`
	} `envconfig:""`

	Queues struct {
		Ingest string `envconfig:"INGEST_QUEUE_KEY" default:"channel_snapshots"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
