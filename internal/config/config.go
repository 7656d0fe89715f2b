package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Web     WebConfig
	Fanout  FanoutConfig
	Storage StorageConfig
	Graph   GraphConfig

	// Сырое окружение для CredentialProvider: все переменные процесса,
	// снятые один раз при загрузке. После Load() конфигурация неизменяема.
	Env map[string]string
}

type WebConfig struct {
	ListenAddr string
}

type FanoutConfig struct {
	MaxConcurrency   int64
	RequestTimeout   time.Duration
	SearchCacheTTL   time.Duration
	DetailedCacheTTL time.Duration
}

type StorageConfig struct {
	// PostgresDSN берется из DATABASE_URL либо POSTGRES_DSN; пустое значение
	// означает встроенный sqlite-бэкенд по пути SQLitePath.
	PostgresDSN string
	SQLitePath  string
}

type GraphConfig struct {
	URI      string
	User     string
	Password string
}

// Enabled сообщает, заданы ли все три параметра графовой БД.
func (g GraphConfig) Enabled() bool {
	return g.URI != "" && g.User != "" && g.Password != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func Load() (*Config, error) {
	// .env опционален: в проде переменные приходят из окружения процесса.
	_ = godotenv.Load()

	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i > 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}

	postgresDSN := os.Getenv("DATABASE_URL")
	if postgresDSN == "" {
		postgresDSN = os.Getenv("POSTGRES_DSN")
	}

	return &Config{
		Web: WebConfig{
			ListenAddr: getEnvOrDefault("LISTEN_ADDR", ":8080"),
		},
		Fanout: FanoutConfig{
			MaxConcurrency:   getEnvInt("FANOUT_MAX_CONCURRENCY", 5),
			RequestTimeout:   getEnvDuration("FANOUT_REQUEST_TIMEOUT", 20*time.Second),
			SearchCacheTTL:   getEnvDuration("SEARCH_CACHE_TTL", 24*time.Hour),
			DetailedCacheTTL: getEnvDuration("DETAILED_CACHE_TTL", time.Hour),
		},
		Storage: StorageConfig{
			PostgresDSN: postgresDSN,
			SQLitePath:  getEnvOrDefault("SOCIAL_MEDIA_SQLITE_PATH", "/tmp/social_media.sqlite"),
		},
		Graph: GraphConfig{
			URI:      os.Getenv("NEO4J_URI"),
			User:     os.Getenv("NEO4J_USER"),
			Password: os.Getenv("NEO4J_PASSWORD"),
		},
		Env: env,
	}, nil
}
