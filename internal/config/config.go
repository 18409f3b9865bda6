package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	SyncTransportMemory = "memory"
	SyncTransportRedis  = "redis"
)

type Config struct {
	Port            string
	DBPath          string
	MigrationsDir   string
	CORSOrigins     []string
	SurfaceSecret   string
	SurfaceTokenTTL time.Duration
	FloatingSurface bool
	PopupsAllowed   bool
	SyncTransport   string
	RedisAddr       string
	SyncChannel     string
	StatusRefresh   time.Duration
	StateSyncTicks  int
}

// fileConfig mirrors Config for the optional YAML file named by CONFIG_FILE.
// Environment variables win over values from the file.
type fileConfig struct {
	Port                 string   `yaml:"port"`
	DBPath               string   `yaml:"db_path"`
	MigrationsDir        string   `yaml:"migrations_dir"`
	CORSOrigins          []string `yaml:"cors_origins"`
	SurfaceSecret        string   `yaml:"surface_secret"`
	SurfaceTokenTTLHours int      `yaml:"surface_token_ttl_hours"`
	FloatingSurface      *bool    `yaml:"floating_surface"`
	PopupsAllowed        *bool    `yaml:"popups_allowed"`
	SyncTransport        string   `yaml:"sync_transport"`
	RedisAddr            string   `yaml:"redis_addr"`
	SyncChannel          string   `yaml:"sync_channel"`
	StatusRefreshSeconds int      `yaml:"status_refresh_seconds"`
	StateSyncTicks       int      `yaml:"state_sync_ticks"`
}

func defaults() Config {
	return Config{
		Port:            "8080",
		DBPath:          "./data/focus.db",
		CORSOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		SurfaceSecret:   "change-this-secret",
		SurfaceTokenTTL: 12 * time.Hour,
		FloatingSurface: true,
		PopupsAllowed:   true,
		SyncTransport:   SyncTransportMemory,
		RedisAddr:       "localhost:6379",
		SyncChannel:     "focus:timer-sync",
		StatusRefresh:   15 * time.Second,
		StateSyncTicks:  5,
	}
}

func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.MigrationsDir = getEnv("MIGRATIONS_DIR", cfg.MigrationsDir)
	cfg.CORSOrigins = getEnvList("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.SurfaceSecret = getEnv("SURFACE_SECRET", cfg.SurfaceSecret)
	cfg.SurfaceTokenTTL = time.Duration(getEnvInt("SURFACE_TOKEN_TTL_HOURS", int(cfg.SurfaceTokenTTL/time.Hour))) * time.Hour
	cfg.FloatingSurface = getEnvBool("FLOATING_SURFACE", cfg.FloatingSurface)
	cfg.PopupsAllowed = getEnvBool("POPUPS_ALLOWED", cfg.PopupsAllowed)
	cfg.SyncTransport = strings.ToLower(getEnv("SYNC_TRANSPORT", cfg.SyncTransport))
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.SyncChannel = getEnv("SYNC_CHANNEL", cfg.SyncChannel)
	cfg.StatusRefresh = time.Duration(getEnvInt("STATUS_REFRESH_SECONDS", int(cfg.StatusRefresh/time.Second))) * time.Second
	cfg.StateSyncTicks = getEnvInt("STATE_SYNC_TICKS", cfg.StateSyncTicks)

	if cfg.SyncTransport != SyncTransportMemory && cfg.SyncTransport != SyncTransportRedis {
		return Config{}, fmt.Errorf("unsupported sync transport %q", cfg.SyncTransport)
	}
	if cfg.StateSyncTicks <= 0 {
		return Config{}, fmt.Errorf("state sync ticks must be positive, got %d", cfg.StateSyncTicks)
	}

	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	if file.Port != "" {
		cfg.Port = file.Port
	}
	if file.DBPath != "" {
		cfg.DBPath = file.DBPath
	}
	if file.MigrationsDir != "" {
		cfg.MigrationsDir = file.MigrationsDir
	}
	if len(file.CORSOrigins) > 0 {
		cfg.CORSOrigins = file.CORSOrigins
	}
	if file.SurfaceSecret != "" {
		cfg.SurfaceSecret = file.SurfaceSecret
	}
	if file.SurfaceTokenTTLHours > 0 {
		cfg.SurfaceTokenTTL = time.Duration(file.SurfaceTokenTTLHours) * time.Hour
	}
	if file.FloatingSurface != nil {
		cfg.FloatingSurface = *file.FloatingSurface
	}
	if file.PopupsAllowed != nil {
		cfg.PopupsAllowed = *file.PopupsAllowed
	}
	if file.SyncTransport != "" {
		cfg.SyncTransport = file.SyncTransport
	}
	if file.RedisAddr != "" {
		cfg.RedisAddr = file.RedisAddr
	}
	if file.SyncChannel != "" {
		cfg.SyncChannel = file.SyncChannel
	}
	if file.StatusRefreshSeconds > 0 {
		cfg.StatusRefresh = time.Duration(file.StatusRefreshSeconds) * time.Second
	}
	if file.StateSyncTicks > 0 {
		cfg.StateSyncTicks = file.StateSyncTicks
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}
