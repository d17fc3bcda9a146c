package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetEnvWithDefault(t *testing.T) {
	const key = "TEST_FEEDRADAR_PORT"

	// 环境变量未设置时，应该返回默认值
	t.Setenv(key, "")
	require.Equal(t, "5000", getEnv(key, "5000"))

	// 环境变量设置后，应优先返回环境变量
	t.Setenv(key, "8080")
	require.Equal(t, "8080", getEnv(key, "5000"))
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"APP_PORT", "FEEDS_FILE", "FETCH_INTERVAL", "STORE_DRIVER",
		"STORE_LOCK_TIMEOUT", "REDIS_ADDR", "SEARCH_RATE_PER_MINUTE", "CORS_ALLOW_ORIGINS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "5000", cfg.AppPort)
	require.Equal(t, "RSSFeeds.txt", cfg.FeedsFile)
	require.Equal(t, 5*time.Minute, cfg.FetchInterval)
	require.Equal(t, "sqlite", cfg.StoreDriver)
	require.Equal(t, "blog.db", cfg.StoreDSN())
	require.Equal(t, 10*time.Second, cfg.StoreLockTimeout)
	require.Empty(t, cfg.RedisAddr)
	require.Equal(t, 10, cfg.SearchRatePerMinute)
	require.Equal(t, []string{"*"}, cfg.CORSAllowOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "1234")
	t.Setenv("FETCH_INTERVAL", "90s")
	t.Setenv("FETCH_CONCURRENCY", "8")
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("POSTGRES_DSN", "host=db")
	t.Setenv("STORE_LOCK_TIMEOUT", "3s")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "1234", cfg.AppPort)
	require.Equal(t, 90*time.Second, cfg.FetchInterval)
	require.Equal(t, 8, cfg.FetchConcurrency)
	require.Equal(t, "postgres", cfg.StoreDriver)
	require.Equal(t, "host=db", cfg.StoreDSN())
	require.Equal(t, 3*time.Second, cfg.StoreLockTimeout)
	require.Equal(t, "redis:6379", cfg.RedisAddr)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowOrigins)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mysql")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("FETCH_CONCURRENCY", "0")
	_, err = Load()
	require.Error(t, err)

	t.Setenv("FETCH_CONCURRENCY", "2")
	t.Setenv("FETCH_INTERVAL", "-1m")
	_, err = Load()
	require.Error(t, err)
}

func TestGetDurationFallsBackOnGarbage(t *testing.T) {
	t.Setenv("TEST_FEEDRADAR_DURATION", "soon")
	require.Equal(t, time.Minute, getDuration("TEST_FEEDRADAR_DURATION", time.Minute))
}

func TestLoadRejectsSubSecondInterval(t *testing.T) {
	for _, v := range []string{"500ms", "1500ms", "0s"} {
		t.Setenv("FETCH_INTERVAL", v)
		_, err := Load()
		require.Error(t, err, v)
	}

	t.Setenv("FETCH_INTERVAL", "1s")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, time.Second, cfg.FetchInterval)
}
