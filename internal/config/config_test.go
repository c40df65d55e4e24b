package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_ParsesAndDefaults(t *testing.T) {
	t.Setenv("ADDR", "")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_DIR", "./_testlogs")
	t.Setenv("API_KEY", " secret ")
	t.Setenv("RATE_LIMIT", "120")
	t.Setenv("RATE_WINDOW_SEC", "60")
	t.Setenv("TRUST_PROXY", "true")
	t.Setenv("MAX_BULK", "10")
	t.Setenv("MX_TIMEOUT_MS", "1500")
	t.Setenv("MX_CACHE_TTL_SEC", "0")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "./_testlogs", cfg.LogDir)
	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, 120, cfg.RateLimit)
	assert.Equal(t, time.Minute, cfg.RateWindow)
	assert.True(t, cfg.TrustProxy)
	assert.Equal(t, 10, cfg.MaxBulk)
	assert.Equal(t, 1500*time.Millisecond, cfg.MXTimeout)
	assert.Equal(t, time.Duration(0), cfg.MXCacheTTL)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
}

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"ADDR", "PORT", "LOG_DIR", "API_KEY", "RATE_LIMIT", "RATE_WINDOW_SEC",
		"TRUST_PROXY", "MAX_BULK", "MX_TIMEOUT_MS", "MX_CACHE_TTL_SEC", "REDIS_ADDR", "REDIS_DB"} {
		t.Setenv(k, "")
	}
	// run from an empty dir so no stray .env is picked up
	t.Chdir(t.TempDir())

	cfg := FromEnv()

	assert.Equal(t, ":3000", cfg.Addr)
	assert.Equal(t, "logs", cfg.LogDir)
	assert.Empty(t, cfg.APIKey)
	assert.Equal(t, 600, cfg.RateLimit)
	assert.Equal(t, 10*time.Minute, cfg.RateWindow)
	assert.False(t, cfg.TrustProxy)
	assert.Equal(t, 50, cfg.MaxBulk)
	assert.Equal(t, 5*time.Second, cfg.MXTimeout)
	assert.Equal(t, 5*time.Minute, cfg.MXCacheTTL)
	assert.Empty(t, cfg.RedisAddr)
}

func TestFromEnv_AddrOverridesPort(t *testing.T) {
	t.Setenv("ADDR", "127.0.0.1:8081")
	t.Setenv("PORT", "9999")
	assert.Equal(t, "127.0.0.1:8081", FromEnv().Addr)
}

func TestFromEnv_MalformedFallsBack(t *testing.T) {
	t.Setenv("MAX_BULK", "lots")
	t.Setenv("MX_TIMEOUT_MS", "-5")
	t.Setenv("TRUST_PROXY", "maybe")

	cfg := FromEnv()
	assert.Equal(t, 50, cfg.MaxBulk)
	assert.Equal(t, 5*time.Second, cfg.MXTimeout)
	assert.False(t, cfg.TrustProxy)
}

func TestFromEnv_DotEnv(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, ".env"), []byte("MAX_BULK=7\nAPI_KEY=from-file\n"), 0o600)
	assert.NoError(t, err)
	t.Chdir(dir)

	// godotenv never overrides a variable that is present, even when empty
	t.Setenv("MAX_BULK", "")
	assert.NoError(t, os.Unsetenv("MAX_BULK"))
	t.Setenv("API_KEY", "from-env")

	cfg := FromEnv()
	assert.Equal(t, "from-env", cfg.APIKey) // environment wins
	assert.Equal(t, 7, cfg.MaxBulk)
}
