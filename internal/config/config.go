package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Auth
		Audit
		Tasks
		Log
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Auth struct {
		SessionSecret   string
		SessionLifetime time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS
		CSRFEnabled     bool

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
	Audit struct {
		RetentionDays   int    // Days to keep audit events (default: 30)
		CleanupSchedule string // Cron format: "0 3 * * *" = daily at 03:00
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Log struct {
		Level  string // zerolog level name
		Format string // "json" or "console"
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)

	// Auth defaults
	v.SetDefault("auth_session_secret", "")       // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h")  // 24 hours
	v.SetDefault("auth_bcrypt_cost", 12)          // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)     // HTTPS-only cookies
	v.SetDefault("auth_csrf_enabled", false)      // API clients opt in
	v.SetDefault("auth_max_login_attempts", 5)    // Max failed attempts
	v.SetDefault("auth_rate_limit_window", "15m") // Window for counting attempts
	v.SetDefault("auth_lockout_duration", "30m")  // Lockout duration

	// Audit defaults
	v.SetDefault("audit_retention_days", 30)
	v.SetDefault("audit_cleanup_schedule", "0 3 * * *")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Auth: Auth{
			SessionSecret:    v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			CSRFEnabled:      v.GetBool("AUTH_CSRF_ENABLED"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
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
		Log: Log{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}
}
