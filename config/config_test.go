package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
account:
  number: "12345678"
  product_code: "01"
api:
  base_url: "https://openapivts.koreainvestment.com:29443"
  app_key: "file-key"
  app_secret: "file-secret"
notify:
  discord_webhook_url: "https://discord.com/api/webhooks/x/y"
strategy:
  watchlist: ["005930", "035720"]
  target_buy_count: 2
  buy_percent: 0.4
journal:
  type: none
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "12345678", cfg.Account.Number)
	assert.Equal(t, []string{"005930", "035720"}, cfg.Strategy.Watchlist)
	assert.Equal(t, 2, cfg.Strategy.TargetBuyCount)
	assert.InDelta(t, 0.4, cfg.Strategy.BuyPercent, 1e-9)

	// Defaults fill what the file omits.
	assert.Equal(t, "Asia/Seoul", cfg.Schedule.Timezone)
	assert.Equal(t, "09:00:00", cfg.Schedule.MarketOpen)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromFile_EnvOverlay(t *testing.T) {
	t.Setenv(EnvAppKey, "env-key")
	t.Setenv(EnvAppSecret, "env-secret")
	t.Setenv(EnvWebhookURL, "https://discord.com/api/webhooks/env")

	cfg, err := LoadFromFile(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.API.AppKey)
	assert.Equal(t, "env-secret", cfg.API.AppSecret)
	assert.Equal(t, "https://discord.com/api/webhooks/env", cfg.Notify.DiscordWebhookURL)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing account", func(c *Config) { c.Account.Number = "" }, "account.number"},
		{"missing credentials", func(c *Config) { c.API.AppKey = "" }, "credentials"},
		{"empty watchlist", func(c *Config) { c.Strategy.Watchlist = nil }, "watchlist"},
		{"zero target", func(c *Config) { c.Strategy.TargetBuyCount = 0 }, "target_buy_count"},
		{"percent too high", func(c *Config) { c.Strategy.BuyPercent = 1.5 }, "buy_percent"},
		{"bad timezone", func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" }, "schedule"},
		{"bad boundary", func(c *Config) { c.Schedule.Exit = "late" }, "schedule"},
		{"bad pacing", func(c *Config) { c.Pacing.TickInterval = "soon" }, "pacing"},
		{"sqlite without path", func(c *Config) { c.Journal = JournalConfig{Type: "sqlite"} }, "db_path"},
		{"csv without files", func(c *Config) { c.Journal = JournalConfig{Type: "csv"} }, "orders_file"},
		{"unknown journal", func(c *Config) { c.Journal.Type = "parquet" }, "journal.type"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFromFile(writeConfig(t, validYAML))
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestScheduleBuild(t *testing.T) {
	t.Parallel()

	sc := Default().Schedule
	sched, err := sc.Build()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Seoul", sched.Location.String())
}

func TestPacingBuild(t *testing.T) {
	t.Parallel()

	p, err := Default().Pacing.Build()
	require.NoError(t, err)
	assert.Equal(t, time.Second, p.TickInterval)
	assert.Equal(t, time.Second, p.SymbolDelay)
	assert.Equal(t, 100*time.Millisecond, p.NotifyDelay)
	assert.Equal(t, 5*time.Second, p.AuditPause)
}
