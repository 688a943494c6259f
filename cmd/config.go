package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the settings of the hub and its client CLI, read from the
// environment. A .env file in the working directory is loaded first when
// present.
type Config struct {
	HTTPPort   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	RestBaseURL      string
	RestServiceToken string
	RestTimeout      time.Duration

	HubBufferSize         int
	WSAuthTimeout         time.Duration
	LocationFlushSchedule string
	LogLevel              slog.Level
}

var loadDotEnv sync.Once

// LoadConfig reads the configuration. Unset keys take their defaults;
// malformed values are reported together.
func LoadConfig() (Config, error) {
	loadDotEnv.Do(func() {
		// Missing .env is fine; real environment variables take precedence.
		_ = godotenv.Load(".env")
	})

	cfg := Config{
		HTTPPort:              envOr("HTTP_PORT", "8080"),
		DBHost:                envOr("DB_HOST", "localhost"),
		DBPort:                envOr("DB_PORT", "5432"),
		DBUser:                os.Getenv("DB_USER"),
		DBPassword:            os.Getenv("DB_PASSWORD"),
		DBName:                os.Getenv("DB_NAME"),
		DBSslMode:             envOr("DB_SSLMODE", "disable"),
		RestBaseURL:           os.Getenv("REST_BASE_URL"),
		RestServiceToken:      os.Getenv("REST_SERVICE_TOKEN"),
		LocationFlushSchedule: os.Getenv("LOCATION_FLUSH_SCHEDULE"),
	}

	var err error
	var parseErrs []error

	if cfg.RestTimeout, err = durationEnv("REST_TIMEOUT", 10*time.Second); err != nil {
		parseErrs = append(parseErrs, err)
	}
	if cfg.WSAuthTimeout, err = durationEnv("WS_AUTH_TIMEOUT", 5*time.Second); err != nil {
		parseErrs = append(parseErrs, err)
	}
	if cfg.HubBufferSize, err = intEnv("HUB_BUFFER_SIZE", 64); err != nil {
		parseErrs = append(parseErrs, err)
	}
	if cfg.LogLevel, err = levelEnv("LOG_LEVEL", slog.LevelInfo); err != nil {
		parseErrs = append(parseErrs, err)
	}

	return cfg, errors.Join(parseErrs...)
}

// DSN renders the postgres connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSslMode)
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback, fmt.Errorf("%s: invalid duration %q", key, raw)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback, fmt.Errorf("%s: invalid positive integer %q", key, raw)
	}
	return n, nil
}

func levelEnv(key string, fallback slog.Level) (slog.Level, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(raw))); err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return level, nil
}
