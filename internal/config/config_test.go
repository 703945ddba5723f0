package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_PATH", "AGENT_PROVIDER", "SESSION_IDLE_TTL", "ALLOWED_ORIGINS", "APP_ENV", "RATE_LIMIT_REQUESTS"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "gemini", cfg.Agent.Provider)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTTL)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, []string{"leetcode.com", "leetcode.cn"}, cfg.Browser.AllowedHosts)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("APP_ENV", "production")
	t.Setenv("ALLOWED_ORIGINS", "chrome-extension://abc, https://leetcode.com ,")
	t.Setenv("RATE_LIMIT_REQUESTS", "5")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("BROWSER_ENABLED", "yes")
	t.Setenv("BROWSER_ALLOWED_HOSTS", "LeetCode.com, neetcode.io")
	t.Setenv("NEWS_CACHE_TTL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, []string{"chrome-extension://abc", "https://leetcode.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 5, cfg.RateLimit.RequestsPerWindow)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.WindowDuration)
	assert.True(t, cfg.Browser.Enabled)
	assert.Equal(t, []string{"leetcode.com", "neetcode.io"}, cfg.Browser.AllowedHosts)
	assert.Equal(t, time.Hour, cfg.News.CacheTTL)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("RATE_LIMIT_REQUESTS", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RATE_LIMIT_REQUESTS")
}
