package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	City        string
	APIBaseURL  string
	APICountry  string
	APIMethod   int
	HTTPTimeout time.Duration

	StorageDriver     string // bolt, postgres, redis or memory
	StoragePath       string // bolt file
	DatabaseURL       string // postgres DSN
	RedisAddr         string
	RedisPassword     string
	StorageQuotaBytes int

	CacheTTL     time.Duration
	CacheVersion string

	CronSpecNotificationCheck string // Runs the adhan rules
	CronSpecCountdown         string // Refreshes the countdown
	CronSpecMidnightRefresh   string // Refetches timings for the new day
	CronSpecConnectivity      string // Probes the upstream host
	ConnectivityProbeAddr     string

	TelegramToken string // Optional; enables the bot when set
	AudioEnabled  bool
	SoundCacheDir string

	LogLevel    string
	Environment string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.City = getEnv("CITY", "Tunis")
	cfg.APIBaseURL = strings.TrimRight(getEnv("API_BASE_URL", "https://api.aladhan.com/v1"), "/")
	cfg.APICountry = getEnv("API_COUNTRY", "Tunisia")

	cfg.APIMethod, err = strconv.Atoi(getEnv("API_METHOD", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid API_METHOD: %w", err)
	}

	cfg.HTTPTimeout, err = time.ParseDuration(getEnv("HTTP_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}

	cfg.StorageDriver = strings.ToLower(getEnv("STORAGE_DRIVER", "bolt"))
	cfg.StoragePath = getEnv("STORAGE_PATH", "mawakit.db")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	switch cfg.StorageDriver {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is not set")
		}
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("REDIS_ADDR is not set")
		}
	case "bolt", "memory":
	default:
		return nil, fmt.Errorf("invalid STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	cfg.StorageQuotaBytes, err = strconv.Atoi(getEnv("STORAGE_QUOTA_BYTES", "5242880")) // 5 MiB, like a browser origin
	if err != nil {
		return nil, fmt.Errorf("invalid STORAGE_QUOTA_BYTES: %w", err)
	}

	cfg.CacheTTL, err = time.ParseDuration(getEnv("CACHE_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}
	cfg.CacheVersion = getEnv("CACHE_VERSION", "1.0.0")

	cfg.CronSpecNotificationCheck = getEnv("CRON_SPEC_NOTIFICATION_CHECK", "@every 5s")
	cfg.CronSpecCountdown = getEnv("CRON_SPEC_COUNTDOWN", "@every 1s")
	cfg.CronSpecMidnightRefresh = getEnv("CRON_SPEC_MIDNIGHT_REFRESH", "0 0 * * *") // Default: midnight local time
	cfg.CronSpecConnectivity = getEnv("CRON_SPEC_CONNECTIVITY", "@every 15s")
	cfg.ConnectivityProbeAddr = getEnv("CONNECTIVITY_PROBE_ADDR", "api.aladhan.com:443")

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")

	cfg.AudioEnabled, err = strconv.ParseBool(getEnv("AUDIO_ENABLED", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUDIO_ENABLED: %w", err)
	}
	cfg.SoundCacheDir = getEnv("SOUND_CACHE_DIR", "sounds")

	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(getEnv("ENVIRONMENT", "development"))

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
