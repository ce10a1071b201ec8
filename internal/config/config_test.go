package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"TELEGRAM_BOT_TOKEN", "WEBHOOK_PUBLIC_URL", "OPENAI_API_KEY", "PORT", "DB_PATH",
		"LOG_LEVEL", "LOG_PRETTY", "RISK_ENABLED", "RISK_FREE_RATE", "RISK_CONFIDENCE",
		"FETCH_WORKERS", "FETCH_TIMEOUT", "YAHOO_RPS", "DEFAULT_WINDOW", "DEFAULT_LOOKBACK_DAYS",
		"CORS_ORIGINS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9095", cfg.Port)
	assert.Equal(t, "/app/data/corr.db", cfg.DBPath)
	assert.True(t, cfg.RiskEnabled)
	assert.Equal(t, 0.95, cfg.RiskConfidence)
	assert.Equal(t, 4, cfg.FetchWorkers)
	assert.Equal(t, 20*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 30, cfg.DefaultWindow)
	assert.Equal(t, 365, cfg.DefaultLookbackDays)
	assert.Equal(t, 5.0, cfg.YahooRPS)
	assert.Empty(t, cfg.CORSOrigins)
	assert.False(t, cfg.TelegramEnabled())
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("WEBHOOK_PUBLIC_URL", "https://bot.example.com")
	t.Setenv("RISK_ENABLED", "false")
	t.Setenv("RISK_FREE_RATE", "0.04")
	t.Setenv("FETCH_TIMEOUT", "5s")
	t.Setenv("FETCH_WORKERS", "not-a-number")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, ,https://b.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.TelegramEnabled())
	assert.False(t, cfg.RiskEnabled)
	assert.Equal(t, 0.04, cfg.RiskFreeRate)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 4, cfg.FetchWorkers)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
}

func TestValidate(t *testing.T) {
	clearEnv(t)

	t.Run("token without webhook", func(t *testing.T) {
		t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
		_, err := Load()
		assert.ErrorContains(t, err, "WEBHOOK_PUBLIC_URL")
	})
	t.Run("confidence out of range", func(t *testing.T) {
		t.Setenv("RISK_CONFIDENCE", "1.5")
		_, err := Load()
		assert.ErrorContains(t, err, "RISK_CONFIDENCE")
	})
	t.Run("window too small", func(t *testing.T) {
		t.Setenv("DEFAULT_WINDOW", "1")
		_, err := Load()
		assert.ErrorContains(t, err, "DEFAULT_WINDOW")
	})
}
