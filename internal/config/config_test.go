package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_DRIVER", "CHAT_HISTORY_LIMIT", "CHAT_TIMEOUT", "ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 20, cfg.ChatHistoryLimit)
	assert.Equal(t, 120*time.Second, cfg.ChatTimeout)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("CHAT_HISTORY_LIMIT", "5")
	t.Setenv("CHAT_TIMEOUT", "30")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("SESSION_COOKIE_SECURE", "yes")
	t.Setenv("GROQ_API_KEY", "gsk_env")

	cfg := Load()
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 5, cfg.ChatHistoryLimit)
	assert.Equal(t, 30*time.Second, cfg.ChatTimeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.True(t, cfg.SessionCookieSecure)
	assert.Equal(t, "gsk_env", cfg.EnvKeys()["groq"])
}

func TestDurationParsing(t *testing.T) {
	t.Setenv("X_DUR", "1m30s")
	assert.Equal(t, 90*time.Second, getEnvDurationDefault("X_DUR", time.Second))
	t.Setenv("X_DUR", "soon")
	assert.Equal(t, time.Second, getEnvDurationDefault("X_DUR", time.Second))
}
