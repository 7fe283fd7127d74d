package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string         `json:"env"`
	Http     HttpConfig     `json:"http"`
	Postgres PostgresConfig `json:"postgres"`
	Redis    RedisConfig    `json:"redis"`
	Cache    CacheConfig    `json:"cache"`
	Retry    RetryConfig    `json:"retry"`
	Refresh  RefreshConfig  `json:"refresh"`
	APIKey   string         `json:"api_key,omitempty"`
}

type HttpConfig struct {
	Port            string        `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

type PostgresConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password,omitempty"`
	SSLMode  string `json:"ssl_mode"`

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db"`
}

type CacheConfig struct {
	TTL      time.Duration `json:"ttl"`
	StatsTTL time.Duration `json:"stats_ttl"`
}

type RetryConfig struct {
	MaxAttempts int           `json:"max_attempts"`
	BaseDelay   time.Duration `json:"base_delay"`
}

type RefreshConfig struct {
	SourceURL string        `json:"source_url"`
	Timeout   time.Duration `json:"timeout"`
	QueueKey  string        `json:"queue_key"`
}

func Load(ctx context.Context) (*Config, error) {
	stdLogger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		stdLogger.Warn(".env load warning", slog.Any("error", err))
	}

	cfg := &Config{
		Env: getEnv("ENV", "local"),
		Http: HttpConfig{
			Port:            getEnv("HTTP_PORT", ":8080"),
			ReadTimeout:     getEnvDuration("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("HTTP_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Postgres: PostgresConfig{
			Host:            getEnv("POSTGRES_HOST", "pg-local"),
			Port:            getEnvInt("POSTGRES_PORT", 5432),
			Database:        getEnv("POSTGRES_DB", "aed_db"),
			User:            getEnv("POSTGRES_USER", "postgres"),
			Password:        getEnv("POSTGRES_PASSWORD", "postgres"),
			SSLMode:         getEnv("POSTGRES_SSL_MODE", "disable"),
			MaxConns:        int32(getEnvInt("POSTGRES_MAX_CONNS", 20)),
			MinConns:        int32(getEnvInt("POSTGRES_MIN_CONNS", 1)),
			MaxConnLifetime: getEnvDuration("POSTGRES_MAX_CONN_LIFETIME", 1*time.Hour),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "redis-local:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			TTL:      getEnvDuration("CACHE_TTL", 1*time.Hour),
			StatsTTL: getEnvDuration("CACHE_STATS_TTL", 5*time.Minute),
		},
		Retry: RetryConfig{
			MaxAttempts: getEnvInt("DB_RETRY_MAX_ATTEMPTS", 3),
			BaseDelay:   getEnvDuration("DB_RETRY_BASE_DELAY", 200*time.Millisecond),
		},
		Refresh: RefreshConfig{
			SourceURL: getEnv("AED_SOURCE_URL", "https://www.hkfsd.gov.hk/datagovhk/aed/fsd_aed.csv"),
			Timeout:   getEnvDuration("AED_SOURCE_TIMEOUT", 30*time.Second),
			QueueKey:  getEnv("REFRESH_QUEUE_KEY", "refresh:queue"),
		},
		APIKey: getEnv("API_KEY", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	stdLogger.Info("Config loaded successfully",
		slog.String("env", cfg.Env),
		slog.String("http_port", cfg.Http.Port),
		slog.String("postgres_db", cfg.Postgres.Database),
		slog.String("redis_addr", cfg.Redis.Addr))

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Http.Port == "" || c.Http.Port[0] != ':' {
		return errors.New("HTTP_PORT must start with ':' like ':8080'")
	}
	if c.Postgres.Host == "" {
		return errors.New("POSTGRES_HOST required")
	}
	if c.Retry.MaxAttempts < 1 {
		return errors.New("DB_RETRY_MAX_ATTEMPTS must be at least 1")
	}
	if c.Refresh.SourceURL == "" {
		return errors.New("AED_SOURCE_URL required")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
