package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage drivers for diagnosis records.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Server captures process level configuration.
type Server struct {
	Addr     string
	LogLevel slog.Level
	Storage  StorageConfig
	Redis    RedisConfig
	Roaming  RoamingConfig
}

// StorageConfig selects and locates the diagnosis store.
type StorageConfig struct {
	Driver      string
	SQLitePath  string
	PostgresDSN string
	// Retention, when non-zero, periodically deletes diagnoses older than it.
	Retention time.Duration
}

// RedisConfig configures the shared Redis client. An empty URL disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RoamingConfig drives the periodic country check.
type RoamingConfig struct {
	Enabled       bool
	CheckInterval time.Duration
	Retention     time.Duration
	DeviceCountry string
}

// FromEnv builds the config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr: getString("EXPOSURE_ADDR", ":8080"),
		Storage: StorageConfig{
			Driver:      strings.ToLower(getString("EXPOSURE_STORAGE_DRIVER", StorageSQLite)),
			SQLitePath:  getString("EXPOSURE_SQLITE_PATH", "data/exposure.db"),
			PostgresDSN: os.Getenv("EXPOSURE_POSTGRES_DSN"),
		},
		Roaming: RoamingConfig{
			DeviceCountry: os.Getenv("EXPOSURE_DEVICE_COUNTRY"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
	}

	var err error
	if cfg.LogLevel, err = getLevel("LOG_LEVEL", slog.LevelInfo); err != nil {
		return Server{}, err
	}
	if cfg.Roaming.Enabled, err = getBool("EXPOSURE_ENABLED", true); err != nil {
		return Server{}, err
	}
	if cfg.Roaming.CheckInterval, err = getDuration("EXPOSURE_COUNTRY_CHECK_INTERVAL", 6*time.Hour); err != nil {
		return Server{}, err
	}
	if cfg.Roaming.Retention, err = getDuration("EXPOSURE_COUNTRY_RETENTION", 14*24*time.Hour); err != nil {
		return Server{}, err
	}
	if cfg.Storage.Retention, err = getDuration("EXPOSURE_DIAGNOSIS_RETENTION", 0); err != nil {
		return Server{}, err
	}
	if cfg.Redis.PoolSize, err = getInt("REDIS_POOL_SIZE", 10); err != nil {
		return Server{}, err
	}
	if cfg.Redis.MinIdleConns, err = getInt("REDIS_MIN_IDLE_CONNS", 2); err != nil {
		return Server{}, err
	}
	if cfg.Redis.DialTimeout, err = getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Redis.ReadTimeout, err = getDuration("REDIS_READ_TIMEOUT", 3*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Redis.WriteTimeout, err = getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second); err != nil {
		return Server{}, err
	}

	switch cfg.Storage.Driver {
	case StorageMemory, StorageSQLite, StoragePostgres:
	default:
		return Server{}, fmt.Errorf("EXPOSURE_STORAGE_DRIVER: unknown driver %q", cfg.Storage.Driver)
	}
	return cfg, nil
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", key, d)
	}
	return d, nil
}

func getLevel(key string, def slog.Level) (slog.Level, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return lvl, nil
}
