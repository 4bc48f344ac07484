package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Prosa
		Secrets
		Auth
		APIKey
		Books
		Covers
		Proxy
		TokenPurge
		Audit
		Tasks
	}

	HTTP struct {
		Port       int32
		Host       string
		PublicHost string // Host advertised to devices; falls back to the request host
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Prosa struct {
		URL        string
		Timeout    time.Duration
		MaxRetries int // Retries apply to GET requests only
	}
	Secrets struct {
		Key     string // Base64 master secret; overrides KeyFile
		KeyFile string
	}
	Auth struct {
		TokenDuration        time.Duration
		RefreshTokenDuration time.Duration
		RateLimitRPS         float64
		RateLimitBurst       int
	}
	APIKey struct {
		Pattern   string
		MinLength int
		MaxLength int
	}
	Books struct {
		TokenExpiration time.Duration
	}
	Covers struct {
		CacheDir      string
		CacheMaxAge   time.Duration
		PruneSchedule string
	}
	Proxy struct {
		Enabled  bool
		StoreURL string
		ImageURL string
	}
	TokenPurge struct {
		Enabled  bool
		Schedule string // Cron format: "*/10 * * * *" = every 10 minutes
	}
	Audit struct {
		RetentionDays   int
		CleanupSchedule string
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
)

// loadDotEnv reads an optional .env file into the process environment.
// Variables already present in the environment win.
func loadDotEnv() {
	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded environment from .env")
	}
}

func NewConfig() *Config {
	loadDotEnv()

	v := viper.New()
	v.AutomaticEnv()
	// An empty schedule variable disables its job
	v.AllowEmptyEnv(true)
	v.SetDefault("port", 5001)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("public_host", "")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)

	// Backend defaults
	v.SetDefault("prosa_url", "http://127.0.0.1:5000")
	v.SetDefault("prosa_timeout", "30s")
	v.SetDefault("prosa_max_retries", 3)

	// Secret defaults
	v.SetDefault("secret_key", "") // Generated into secret_key_file if empty
	v.SetDefault("secret_key_file", DefaultSecretKeyPath)

	// Auth defaults
	v.SetDefault("auth_token_duration", "900s")
	v.SetDefault("auth_refresh_token_duration", "3600s")
	v.SetDefault("auth_rate_limit_rps", 5)
	v.SetDefault("auth_rate_limit_burst", 10)

	// API key format defaults
	v.SetDefault("api_key_pattern", DefaultAPIKeyPattern)
	v.SetDefault("api_key_min_length", 1)
	v.SetDefault("api_key_max_length", 512)

	v.SetDefault("book_token_expiration", "60s")
	v.SetDefault("cover_cache_dir", DefaultCoverCacheDir)
	v.SetDefault("cover_cache_max_age", "168h")
	v.SetDefault("cover_prune_schedule", "30 3 * * *")

	// Store proxy defaults
	v.SetDefault("proxy_enabled", true)
	v.SetDefault("proxy_store_url", "https://storeapi.kobo.com")
	v.SetDefault("proxy_image_url", "https://cdn.kobo.com")

	v.SetDefault("token_purge_enabled", true)
	v.SetDefault("token_purge_schedule", "*/10 * * * *")
	v.SetDefault("audit_retention_days", 30)
	v.SetDefault("audit_cleanup_schedule", "0 3 * * *")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	return &Config{
		HTTP: HTTP{
			Port:       v.GetInt32("PORT"),
			Host:       v.GetString("HOST"),
			PublicHost: v.GetString("PUBLIC_HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Prosa: Prosa{
			URL:        v.GetString("PROSA_URL"),
			Timeout:    v.GetDuration("PROSA_TIMEOUT"),
			MaxRetries: v.GetInt("PROSA_MAX_RETRIES"),
		},
		Secrets: Secrets{
			Key:     v.GetString("SECRET_KEY"),
			KeyFile: v.GetString("SECRET_KEY_FILE"),
		},
		Auth: Auth{
			TokenDuration:        v.GetDuration("AUTH_TOKEN_DURATION"),
			RefreshTokenDuration: v.GetDuration("AUTH_REFRESH_TOKEN_DURATION"),
			RateLimitRPS:         v.GetFloat64("AUTH_RATE_LIMIT_RPS"),
			RateLimitBurst:       v.GetInt("AUTH_RATE_LIMIT_BURST"),
		},
		APIKey: APIKey{
			Pattern:   v.GetString("API_KEY_PATTERN"),
			MinLength: v.GetInt("API_KEY_MIN_LENGTH"),
			MaxLength: v.GetInt("API_KEY_MAX_LENGTH"),
		},
		Books: Books{
			TokenExpiration: v.GetDuration("BOOK_TOKEN_EXPIRATION"),
		},
		Covers: Covers{
			CacheDir:      v.GetString("COVER_CACHE_DIR"),
			CacheMaxAge:   v.GetDuration("COVER_CACHE_MAX_AGE"),
			PruneSchedule: v.GetString("COVER_PRUNE_SCHEDULE"),
		},
		Proxy: Proxy{
			Enabled:  v.GetBool("PROXY_ENABLED"),
			StoreURL: v.GetString("PROXY_STORE_URL"),
			ImageURL: v.GetString("PROXY_IMAGE_URL"),
		},
		TokenPurge: TokenPurge{
			Enabled:  v.GetBool("TOKEN_PURGE_ENABLED"),
			Schedule: v.GetString("TOKEN_PURGE_SCHEDULE"),
		},
		Audit: Audit{
			RetentionDays:   v.GetInt("AUDIT_RETENTION_DAYS"),
			CleanupSchedule: v.GetString("AUDIT_CLEANUP_SCHEDULE"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
	}
}
