package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, int32(8188), cfg.HTTP.Port)
	assert.Equal(t, "0.0.0.0", cfg.HTTP.Host)
	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionLifetime)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.True(t, cfg.Auth.SecureCookies)
	assert.False(t, cfg.Auth.CSRFEnabled)
	assert.Equal(t, 5, cfg.Auth.MaxLoginAttempts)
	assert.Equal(t, 30, cfg.Audit.RetentionDays)
	assert.Equal(t, "0 3 * * *", cfg.Audit.CleanupSchedule)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestNewConfig_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("AUTH_BCRYPT_COST", "4")
	t.Setenv("AUTH_SECURE_COOKIES", "false")
	t.Setenv("AUTH_LOCKOUT_DURATION", "1m")
	t.Setenv("LOG_FORMAT", "console")

	cfg := NewConfig()

	assert.Equal(t, int32(9000), cfg.HTTP.Port)
	assert.Equal(t, 4, cfg.Auth.BcryptCost)
	assert.False(t, cfg.Auth.SecureCookies)
	assert.Equal(t, time.Minute, cfg.Auth.LockoutDuration)
	assert.Equal(t, "console", cfg.Log.Format)
}
