package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log       LoggingConfig   `yaml:"log"`
	REST      RESTConfig      `yaml:"rest"`
	WS        WSConfig        `yaml:"ws"`
	State     StateConfig     `yaml:"state"`
	Rebalance RebalanceConfig `yaml:"rebalance"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Timescale TimescaleConfig `yaml:"timescale"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type RESTConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type WSConfig struct {
	Enabled        bool          `yaml:"enabled"`
	URL            string        `yaml:"url"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	MaxPriceAge    time.Duration `yaml:"max_price_age"`
}

type StateConfig struct {
	SQLitePath  string `yaml:"sqlite_path"`
	HistoryPath string `yaml:"history_path"`
}

type RebalanceConfig struct {
	Asset            string        `yaml:"asset"`
	CashCurrency     string        `yaml:"cash_currency"`
	TargetRatio      float64       `yaml:"target_ratio"`
	LowerThreshold   float64       `yaml:"lower_threshold"`
	UpperThreshold   float64       `yaml:"upper_threshold"`
	FeeRate          float64       `yaml:"fee_rate"`
	MinOrderNotional float64       `yaml:"min_order_notional"`
	CheckInterval    time.Duration `yaml:"check_interval"`
	RecordTime       string        `yaml:"record_time"`
}

// MarketCode is the exchange market identifier, e.g. KRW-BTC.
func (c RebalanceConfig) MarketCode() string {
	return c.CashCurrency + "-" + c.Asset
}

type TelegramConfig struct {
	Enabled              bool          `yaml:"enabled"`
	Token                string        `yaml:"token"`
	ChatID               string        `yaml:"chat_id"`
	OperatorEnabled      bool          `yaml:"operator_enabled"`
	OperatorPollInterval time.Duration `yaml:"operator_poll_interval"`
	OperatorAllowedIDs   []int64       `yaml:"operator_allowed_user_ids"`
}

type TimescaleConfig struct {
	Enabled         bool          `yaml:"enabled"`
	DSN             string        `yaml:"dsn"`
	Schema          string        `yaml:"schema"`
	QueueSize       int           `yaml:"queue_size"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, validate(&cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.REST.BaseURL == "" {
		cfg.REST.BaseURL = "https://api.bithumb.com"
	}
	if cfg.REST.Timeout == 0 {
		cfg.REST.Timeout = 10 * time.Second
	}
	if cfg.WS.URL == "" {
		cfg.WS.URL = "wss://ws-api.bithumb.com/websocket/v1"
	}
	if cfg.WS.ReconnectDelay == 0 {
		cfg.WS.ReconnectDelay = 3 * time.Second
	}
	if cfg.WS.PingInterval == 0 {
		cfg.WS.PingInterval = 30 * time.Second
	}
	if cfg.WS.MaxPriceAge == 0 {
		cfg.WS.MaxPriceAge = 10 * time.Second
	}
	if cfg.State.SQLitePath == "" {
		cfg.State.SQLitePath = "data/rebalance-bot.db"
	}
	if cfg.State.HistoryPath == "" {
		cfg.State.HistoryPath = "data/performance.db"
	}
	if cfg.Rebalance.Asset == "" {
		cfg.Rebalance.Asset = "BTC"
	}
	if cfg.Rebalance.CashCurrency == "" {
		cfg.Rebalance.CashCurrency = "KRW"
	}
	if cfg.Rebalance.TargetRatio == 0 {
		cfg.Rebalance.TargetRatio = 0.5
	}
	if cfg.Rebalance.LowerThreshold == 0 {
		cfg.Rebalance.LowerThreshold = 0.4
	}
	if cfg.Rebalance.UpperThreshold == 0 {
		cfg.Rebalance.UpperThreshold = 0.6
	}
	if cfg.Rebalance.FeeRate == 0 {
		cfg.Rebalance.FeeRate = 0.0025
	}
	if cfg.Rebalance.MinOrderNotional == 0 {
		cfg.Rebalance.MinOrderNotional = 1000
	}
	if cfg.Rebalance.CheckInterval == 0 {
		cfg.Rebalance.CheckInterval = 6 * time.Hour
	}
	if cfg.Rebalance.RecordTime == "" {
		cfg.Rebalance.RecordTime = "09:00"
	}
	if cfg.Telegram.OperatorPollInterval == 0 {
		cfg.Telegram.OperatorPollInterval = 3 * time.Second
	}
	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = ":9180"
	}
}

func validate(cfg *Config) error {
	r := cfg.Rebalance
	if !(0 < r.LowerThreshold && r.LowerThreshold < r.TargetRatio && r.TargetRatio < r.UpperThreshold && r.UpperThreshold < 1) {
		return fmt.Errorf("rebalance thresholds must satisfy 0 < lower (%v) < target (%v) < upper (%v) < 1",
			r.LowerThreshold, r.TargetRatio, r.UpperThreshold)
	}
	if r.FeeRate < 0 || r.FeeRate >= 1 {
		return errors.New("rebalance.fee_rate must be in [0, 1)")
	}
	if r.MinOrderNotional < 0 {
		return errors.New("rebalance.min_order_notional must not be negative")
	}
	if r.CheckInterval <= 0 {
		return errors.New("rebalance.check_interval must be > 0")
	}
	if _, err := time.Parse("15:04", r.RecordTime); err != nil {
		return fmt.Errorf("rebalance.record_time must be HH:MM: %w", err)
	}
	if cfg.Timescale.Enabled && cfg.Timescale.DSN == "" {
		return errors.New("timescale.dsn is required when timescale is enabled")
	}
	return nil
}
