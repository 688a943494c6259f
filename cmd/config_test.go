package cmd

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"HTTP_PORT", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
		"REST_BASE_URL", "REST_SERVICE_TOKEN", "REST_TIMEOUT", "HUB_BUFFER_SIZE",
		"WS_AUTH_TIMEOUT", "LOCATION_FLUSH_SCHEDULE", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 10*time.Second, cfg.RestTimeout)
	assert.Equal(t, 5*time.Second, cfg.WSAuthTimeout)
	assert.Equal(t, 64, cfg.HubBufferSize)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("DB_NAME", "tracking")
	t.Setenv("DB_USER", "hub")
	t.Setenv("REST_BASE_URL", "https://shop.example/api")
	t.Setenv("REST_TIMEOUT", "3s")
	t.Setenv("HUB_BUFFER_SIZE", "8")
	t.Setenv("WS_AUTH_TIMEOUT", "750ms")
	t.Setenv("LOCATION_FLUSH_SCHEDULE", "*/30 * * * * *")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.HTTPPort)
	assert.Equal(t, "https://shop.example/api", cfg.RestBaseURL)
	assert.Equal(t, 3*time.Second, cfg.RestTimeout)
	assert.Equal(t, 8, cfg.HubBufferSize)
	assert.Equal(t, 750*time.Millisecond, cfg.WSAuthTimeout)
	assert.Equal(t, "*/30 * * * * *", cfg.LocationFlushSchedule)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Contains(t, cfg.DSN(), "dbname=tracking")
	assert.Contains(t, cfg.DSN(), "user=hub")
}

func TestLoadConfig_MalformedValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("REST_TIMEOUT", "soon")
	t.Setenv("HUB_BUFFER_SIZE", "-1")
	t.Setenv("LOG_LEVEL", "chatty")

	cfg, err := LoadConfig()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "REST_TIMEOUT")
	assert.Contains(t, err.Error(), "HUB_BUFFER_SIZE")
	assert.Contains(t, err.Error(), "LOG_LEVEL")
	assert.Equal(t, 10*time.Second, cfg.RestTimeout)
	assert.Equal(t, 64, cfg.HubBufferSize)
}
