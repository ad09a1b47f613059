package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://ledger@localhost/ledger")
	t.Setenv("APP_ENV", "")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.App.IsDevelopment())
	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, int32(25), cfg.Database.MaxConns)
	assert.Equal(t, 30*time.Second, cfg.Database.StatementTimeout)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, 8*1024, cfg.Report.AuditCompressThreshold)
	assert.False(t, cfg.Report.AllowUnderflow)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://ledger@db/ledger")
	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("PRODUCT_CACHE_TTL", "90s")
	t.Setenv("ALLOW_UNDERFLOW", "true")
	t.Setenv("DB_MAX_CONNS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.App.IsDevelopment())
	assert.Equal(t, "9090", cfg.HTTP.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 90*time.Second, cfg.Redis.ProductTTL)
	assert.True(t, cfg.Report.AllowUnderflow)
	assert.Equal(t, int32(25), cfg.Database.MaxConns)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("APP_ENV", "qa")
	t.Setenv("DB_MIN_CONNS", "50")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Config.Database.URL")
	assert.Contains(t, err.Error(), "Config.App.Env")
	assert.Contains(t, err.Error(), "Config.Database.MinConns")
}
