package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppPort string
	WebRoot string // 前端静态目录，为空时不托管 index.html

	FeedsFile        string
	FetchInterval    time.Duration
	FetchTimeout     time.Duration
	FetchConcurrency int

	StoreDriver      string // sqlite / postgres
	SQLitePath       string
	PostgresDSN      string
	StoreLockTimeout time.Duration

	RedisAddr      string // 为空时不启用搜索缓存
	SearchCacheTTL time.Duration

	SearchRatePerMinute int
	CORSAllowOrigins    []string

	NERModelDir string
}

func Load() (*Config, error) {
	cfg := &Config{
		AppPort:             getEnv("APP_PORT", "5000"),
		WebRoot:             getEnv("WEB_ROOT", ""),
		FeedsFile:           getEnv("FEEDS_FILE", "RSSFeeds.txt"),
		FetchInterval:       getDuration("FETCH_INTERVAL", 5*time.Minute),
		FetchTimeout:        getDuration("FETCH_TIMEOUT", 20*time.Second),
		FetchConcurrency:    getInt("FETCH_CONCURRENCY", 4),
		StoreDriver:         strings.ToLower(getEnv("STORE_DRIVER", "sqlite")),
		SQLitePath:          getEnv("SQLITE_PATH", "blog.db"),
		PostgresDSN:         getEnv("POSTGRES_DSN", "host=localhost user=feedradar password=feedradar dbname=feedradar port=5432 sslmode=disable TimeZone=UTC"),
		StoreLockTimeout:    getDuration("STORE_LOCK_TIMEOUT", 10*time.Second),
		RedisAddr:           getEnv("REDIS_ADDR", ""),
		SearchCacheTTL:      getDuration("SEARCH_CACHE_TTL", 5*time.Minute),
		SearchRatePerMinute: getInt("SEARCH_RATE_PER_MINUTE", 10),
		CORSAllowOrigins:    splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "*")),
		NERModelDir:         getEnv("NER_MODEL_DIR", ""),
	}

	if cfg.StoreDriver != "sqlite" && cfg.StoreDriver != "postgres" {
		return nil, fmt.Errorf("STORE_DRIVER must be sqlite or postgres, got %q", cfg.StoreDriver)
	}
	// 调度按整秒计时，亚秒部分会被截掉
	if cfg.FetchInterval < time.Second || cfg.FetchInterval%time.Second != 0 {
		return nil, fmt.Errorf("FETCH_INTERVAL must be a whole number of seconds and at least 1s, got %s", cfg.FetchInterval)
	}
	if cfg.FetchTimeout <= 0 {
		return nil, fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	if cfg.FetchConcurrency <= 0 {
		return nil, fmt.Errorf("FETCH_CONCURRENCY must be positive")
	}
	if cfg.StoreLockTimeout <= 0 {
		return nil, fmt.Errorf("STORE_LOCK_TIMEOUT must be positive")
	}
	if cfg.SearchRatePerMinute <= 0 {
		return nil, fmt.Errorf("SEARCH_RATE_PER_MINUTE must be positive")
	}
	if len(cfg.CORSAllowOrigins) == 0 {
		cfg.CORSAllowOrigins = []string{"*"}
	}

	return cfg, nil
}

// StoreDSN 返回当前驱动对应的连接串
func (c *Config) StoreDSN() string {
	if c.StoreDriver == "postgres" {
		return c.PostgresDSN
	}
	return c.SQLitePath
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// getDuration 解析失败时回退到默认值，与 getInt 一致
func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
