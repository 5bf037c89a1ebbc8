package main

import (
	"testing"

	"github.com/caarlos0/env/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_ADMIN_USER_IDS", "1 22 333")

	cfg := Config{}
	require.NoError(t, env.Parse(&cfg))

	assert.Equal(t, []int64{1, 22, 333}, cfg.TelegramAdminUserIDs)
	assert.Equal(t, 60, cfg.TelegramUpdateTimeout)
	assert.Equal(t, 10, cfg.TelegramUpdateListenerPoolSize)
	assert.Equal(t, "config.yaml", cfg.ConfigPath)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Empty(t, cfg.PgURL)
	assert.False(t, cfg.LogNoColor)
}

func TestConfigRequiresToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	cfg := Config{}
	assert.Error(t, env.Parse(&cfg))
}
