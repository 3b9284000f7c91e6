package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/academy-portal/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	for _, v := range []string{"PORT", "APP_NAME", "ENV", "LOG_LEVEL", "API_BASE_URL", "STORAGE_BACKEND",
		"SQLITE_PATH", "DATABASE_URL", "DEVICE_COOKIE", "DEVICE_COOKIE_MAX_AGE", "SECURE_COOKIES"} {
		t.Setenv(v, "")
	}

	c := config.New()
	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, "Academy Portal", c.GetAppName())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, "info", c.GetLogLevel())
	require.Equal(t, "http://localhost:8000", c.GetAPIBaseURL())
	require.Equal(t, config.StorageSQLite, c.GetStorageBackend())
	require.Equal(t, "./data/credentials.db", c.GetSQLitePath())
	require.Empty(t, c.GetDatabaseURL())
	require.Equal(t, "academy_device", c.GetDeviceCookieName())
	require.Equal(t, 30*24*time.Hour, c.GetDeviceCookieMaxAge())
	require.False(t, c.GetSecureCookies())
}

func TestOverrides(t *testing.T) {
	t.Setenv("PORT", ":9090")
	t.Setenv("ENV", "PROD")
	t.Setenv("API_BASE_URL", "https://api.academy.example/")
	t.Setenv("STORAGE_BACKEND", "Postgres")
	t.Setenv("DEVICE_COOKIE_MAX_AGE", "1h")
	t.Setenv("SECURE_COOKIES", "")

	c := config.New()
	require.Equal(t, ":9090", c.GetPort())
	require.Equal(t, "https://api.academy.example", c.GetAPIBaseURL())
	require.Equal(t, config.StoragePostgres, c.GetStorageBackend())
	require.Equal(t, time.Hour, c.GetDeviceCookieMaxAge())
	require.True(t, c.GetSecureCookies())

	t.Setenv("DEVICE_COOKIE_MAX_AGE", "forever")
	require.Equal(t, 30*24*time.Hour, c.GetDeviceCookieMaxAge())
}
