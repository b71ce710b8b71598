// Package config loads the trader's YAML configuration. Credentials can
// be overlaid from the environment (or a .env file) so they stay out of
// the config file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hanulsoft/kistrader/session"
	"github.com/hanulsoft/kistrader/trader"
)

// Environment variables overlaid onto the loaded file when set.
const (
	EnvAppKey     = "KIS_APP_KEY"
	EnvAppSecret  = "KIS_APP_SECRET"
	EnvWebhookURL = "DISCORD_WEBHOOK_URL"
)

// Config is the complete process configuration, fixed for the process
// lifetime. There is no runtime reconfiguration.
type Config struct {
	Account  AccountConfig  `yaml:"account"`
	API      APIConfig      `yaml:"api"`
	Notify   NotifyConfig   `yaml:"notify"`
	Strategy StrategyConfig `yaml:"strategy"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Pacing   PacingConfig   `yaml:"pacing"`
	Journal  JournalConfig  `yaml:"journal"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	LogLevel string         `yaml:"log_level"`
}

// AccountConfig identifies the single brokerage account traded.
type AccountConfig struct {
	Number      string `yaml:"number"`       // CANO
	ProductCode string `yaml:"product_code"` // ACNT_PRDT_CD
}

// APIConfig holds KIS API connectivity and credentials.
type APIConfig struct {
	BaseURL   string `yaml:"base_url"`
	AppKey    string `yaml:"app_key"`
	AppSecret string `yaml:"app_secret"`
}

// NotifyConfig configures the operator notification channel. An empty
// webhook URL logs messages locally instead.
type NotifyConfig struct {
	DiscordWebhookURL string `yaml:"discord_webhook_url"`
}

// StrategyConfig holds the watch-list and entry sizing parameters.
type StrategyConfig struct {
	Watchlist      []string `yaml:"watchlist"`
	TargetBuyCount int      `yaml:"target_buy_count"`
	BuyPercent     float64  `yaml:"buy_percent"`
}

// ScheduleConfig holds the session's phase boundaries as local clock
// strings in the given timezone.
type ScheduleConfig struct {
	Timezone      string `yaml:"timezone"`
	MarketOpen    string `yaml:"market_open"`
	TradingStart  string `yaml:"trading_start"`
	CloseoutStart string `yaml:"closeout_start"`
	Exit          string `yaml:"exit"`
}

// PacingConfig holds the loop's sleep knobs as duration strings
// (e.g. "1s", "100ms").
type PacingConfig struct {
	TickInterval string `yaml:"tick_interval"`
	SymbolDelay  string `yaml:"symbol_delay"`
	NotifyDelay  string `yaml:"notify_delay"`
	AuditPause   string `yaml:"audit_pause"`
}

// JournalConfig selects the audit journal backend.
type JournalConfig struct {
	Type         string `yaml:"type"` // "sqlite", "csv" or "none"
	DBPath       string `yaml:"db_path,omitempty"`
	OrdersFile   string `yaml:"orders_file,omitempty"`
	BalancesFile string `yaml:"balances_file,omitempty"`
}

// MetricsConfig enables the prometheus listener when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// LoadFromFile reads a YAML config, overlays credentials from the
// environment (.env honored when present), and validates the result.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	_ = godotenv.Load()
	if v := os.Getenv(EnvAppKey); v != "" {
		cfg.API.AppKey = v
	}
	if v := os.Getenv(EnvAppSecret); v != "" {
		cfg.API.AppSecret = v
	}
	if v := os.Getenv(EnvWebhookURL); v != "" {
		cfg.Notify.DiscordWebhookURL = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// BuildSchedule constructs the session schedule from the config strings.
func (s ScheduleConfig) Build() (session.Schedule, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return session.Schedule{}, fmt.Errorf("timezone: %w", err)
	}
	return session.New(loc, s.MarketOpen, s.TradingStart, s.CloseoutStart, s.Exit)
}

// Build parses the pacing duration strings.
func (p PacingConfig) Build() (trader.Pacing, error) {
	var (
		out trader.Pacing
		err error
	)
	if out.TickInterval, err = time.ParseDuration(p.TickInterval); err != nil {
		return trader.Pacing{}, fmt.Errorf("tick_interval: %w", err)
	}
	if out.SymbolDelay, err = time.ParseDuration(p.SymbolDelay); err != nil {
		return trader.Pacing{}, fmt.Errorf("symbol_delay: %w", err)
	}
	if out.NotifyDelay, err = time.ParseDuration(p.NotifyDelay); err != nil {
		return trader.Pacing{}, fmt.Errorf("notify_delay: %w", err)
	}
	if out.AuditPause, err = time.ParseDuration(p.AuditPause); err != nil {
		return trader.Pacing{}, fmt.Errorf("audit_pause: %w", err)
	}
	return out, nil
}

// Validate checks the configuration is complete and internally
// consistent.
func (c *Config) Validate() error {
	if c.Account.Number == "" {
		return fmt.Errorf("account.number is required")
	}
	if c.Account.ProductCode == "" {
		return fmt.Errorf("account.product_code is required")
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.AppKey == "" || c.API.AppSecret == "" {
		return fmt.Errorf("api credentials are required (file or %s/%s)", EnvAppKey, EnvAppSecret)
	}
	if len(c.Strategy.Watchlist) == 0 {
		return fmt.Errorf("strategy.watchlist must not be empty")
	}
	if c.Strategy.TargetBuyCount <= 0 {
		return fmt.Errorf("strategy.target_buy_count must be positive")
	}
	if c.Strategy.BuyPercent <= 0 || c.Strategy.BuyPercent > 1 {
		return fmt.Errorf("strategy.buy_percent must be in (0, 1]")
	}
	if _, err := c.Schedule.Build(); err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	if _, err := c.Pacing.Build(); err != nil {
		return fmt.Errorf("pacing: %w", err)
	}

	switch c.Journal.Type {
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for sqlite journal")
		}
	case "csv":
		if c.Journal.OrdersFile == "" || c.Journal.BalancesFile == "" {
			return fmt.Errorf("journal orders_file and balances_file required for csv journal")
		}
	case "none":
	default:
		return fmt.Errorf("journal.type must be 'sqlite', 'csv' or 'none'")
	}

	return nil
}

// Default returns a configuration with sensible defaults. Credentials
// and account identifiers must still be supplied.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "https://openapivts.koreainvestment.com:29443",
		},
		Strategy: StrategyConfig{
			Watchlist:      []string{"005930", "035720", "000660", "069500"},
			TargetBuyCount: 3,
			BuyPercent:     0.33,
		},
		Schedule: ScheduleConfig{
			Timezone:      "Asia/Seoul",
			MarketOpen:    "09:00:00",
			TradingStart:  "09:05:00",
			CloseoutStart: "15:15:00",
			Exit:          "15:20:00",
		},
		Pacing: PacingConfig{
			TickInterval: "1s",
			SymbolDelay:  "1s",
			NotifyDelay:  "100ms",
			AuditPause:   "5s",
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./kistrader.db",
		},
		LogLevel: "info",
	}
}
