package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PUBLIC_ROOT", "")
	t.Setenv("RECONCILE_INTERVAL", "")
	t.Setenv("DEFAULT_REQUIRE_APPROVAL", "")

	cfg := Load()
	assert.Equal(t, "public", cfg.PublicRoot)
	assert.Equal(t, time.Duration(0), cfg.ReconcileInterval)
	assert.True(t, cfg.DefaultRequireApproval)
	assert.Equal(t, "local", cfg.DefaultStorageType)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RECONCILE_INTERVAL", "90")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("DEFAULT_REQUIRE_APPROVAL", "false")
	t.Setenv("DEFAULT_MAX_FILE_SIZE", "1024")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := Load()
	assert.Equal(t, 90*time.Second, cfg.ReconcileInterval)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.False(t, cfg.DefaultRequireApproval)
	assert.Equal(t, int64(1024), cfg.DefaultMaxFileSize)
	assert.Equal(t, 0, cfg.RedisDB)
}
