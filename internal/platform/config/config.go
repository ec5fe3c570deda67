// Package config はアプリケーション設定を .env ファイルと環境変数から読み込みます。
// 各プラットフォームパッケージの Config をここで組み立てます。
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"stock_screener/internal/feature/stocks/usecase"
	"stock_screener/internal/platform/db"
	"stock_screener/internal/platform/externalapi/yahoo"
	"stock_screener/internal/platform/logger"
	"stock_screener/internal/platform/redis"
	"stock_screener/internal/platform/worker"
)

// Config represents the application configuration.
type Config struct {
	Server     ServerConfig
	Database   db.Config
	Redis      redis.Config
	Cache      CacheConfig
	Logging    logger.Config
	MarketData yahoo.Config
	Enrichment usecase.EnrichConfig
	Workers    worker.Config
}

type ServerConfig struct {
	Port            string
	Mode            string // gin mode: debug, release, test
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type CacheConfig struct {
	TTL       time.Duration
	Namespace string
}

// Load は .env（存在すれば）を読み込んだうえで環境変数から設定を構築します。
// files を指定した場合はそれらを .env の代わりに読み込みます。
// 数値や期間として解釈できない値があればエラーを返します。
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		// .env が無くても環境変数だけで動作する
		log.Debug().Err(err).Msg(".env file not loaded, using environment variables")
	}

	p := &parser{}
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Mode:            getEnv("GIN_MODE", "release"),
			ReadTimeout:     p.duration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    p.duration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: p.duration("SERVER_SHUTDOWN_TIMEOUT", 20*time.Second),
		},
		Database: db.Config{
			Driver:         getEnv("DB_DRIVER", db.DriverSQLite),
			Path:           getEnv("DB_PATH", "stocks.db"),
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", ""),
			Password:       getEnv("DB_PASSWORD", ""),
			Name:           getEnv("DB_NAME", "stocks"),
			InstanceName:   getEnv("INSTANCE_CONNECTION_NAME", ""),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			RunMigrations:  p.bool("RUN_MIGRATIONS", true),
			ConnectTimeout: p.duration("DB_CONNECT_TIMEOUT", 60*time.Second),
			MaxOpenConns:   p.int("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:   p.int("DB_MAX_IDLE_CONNS", 5),
		},
		Redis: redis.Config{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       p.int("REDIS_DB", 0),
			PoolSize: p.int("REDIS_POOL_SIZE", 10),
		},
		Cache: CacheConfig{
			TTL:       p.duration("CACHE_TTL", time.Minute),
			Namespace: getEnv("CACHE_NAMESPACE", "stocks"),
		},
		Logging: logger.Config{
			Level:         getEnv("LOG_LEVEL", "info"),
			Format:        getEnv("LOG_FORMAT", "json"),
			FileEnabled:   p.bool("LOG_FILE_ENABLED", false),
			FilePath:      getEnv("LOG_FILE_PATH", "logs"),
			RotationSize:  p.int("LOG_ROTATION_SIZE_MB", 100),
			RetentionDays: p.int("LOG_RETENTION_DAYS", 7),
			ServiceName:   getEnv("SERVICE_NAME", "stock-screener"),
		},
		MarketData: yahoo.Config{
			BaseURL:   getEnv("MARKET_DATA_BASE_URL", yahoo.DefaultBaseURL),
			CookieURL: getEnv("MARKET_DATA_COOKIE_URL", yahoo.DefaultCookieURL),
			Timeout:   p.duration("MARKET_DATA_TIMEOUT", 10*time.Second),
			UserAgent: getEnv("MARKET_DATA_USER_AGENT", "Mozilla/5.0 (compatible; stock-screener/1.0)"),
			RateLimit: p.int("MARKET_DATA_RATE_LIMIT", 60),
		},
		Enrichment: usecase.EnrichConfig{
			FetchTimeout: p.duration("ENRICH_FETCH_TIMEOUT", 15*time.Second),
			MaxAttempts:  p.int("ENRICH_MAX_ATTEMPTS", 1),
			RetryBackoff: p.duration("ENRICH_RETRY_BACKOFF", 500*time.Millisecond),
		},
		Workers: worker.Config{
			Workers: p.int("ENRICH_WORKERS", worker.DefaultWorkers),
		},
	}

	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// getEnv gets environment variable with fallback.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parser collects conversion errors so that every bad variable is reported at once.
type parser struct {
	errs []error
}

func (p *parser) int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return fallback
	}
	return n
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return fallback
	}
	return d
}

func (p *parser) bool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid boolean %q", key, v))
		return fallback
	}
	return b
}
