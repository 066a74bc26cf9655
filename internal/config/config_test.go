package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "rebalance:\n  asset: BTC\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("expected default log level, got %q", cfg.Log.Level)
	}
	if cfg.REST.BaseURL != "https://api.bithumb.com" {
		t.Fatalf("unexpected base url %q", cfg.REST.BaseURL)
	}
	if cfg.REST.Timeout != 10*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.REST.Timeout)
	}
	if cfg.Rebalance.TargetRatio != 0.5 || cfg.Rebalance.LowerThreshold != 0.4 || cfg.Rebalance.UpperThreshold != 0.6 {
		t.Fatalf("unexpected threshold defaults %+v", cfg.Rebalance)
	}
	if cfg.Rebalance.FeeRate != 0.0025 {
		t.Fatalf("unexpected fee default %v", cfg.Rebalance.FeeRate)
	}
	if cfg.Rebalance.MinOrderNotional != 1000 {
		t.Fatalf("unexpected min notional default %v", cfg.Rebalance.MinOrderNotional)
	}
	if cfg.Rebalance.CheckInterval != 6*time.Hour {
		t.Fatalf("unexpected check interval %v", cfg.Rebalance.CheckInterval)
	}
	if cfg.Rebalance.RecordTime != "09:00" {
		t.Fatalf("unexpected record time %q", cfg.Rebalance.RecordTime)
	}
	if cfg.Rebalance.MarketCode() != "KRW-BTC" {
		t.Fatalf("unexpected market code %q", cfg.Rebalance.MarketCode())
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
rest:
  timeout: 5s
rebalance:
  asset: ETH
  target_ratio: 0.6
  lower_threshold: 0.5
  upper_threshold: 0.7
  check_interval: 1h
  record_time: "21:30"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("unexpected level %q", cfg.Log.Level)
	}
	if cfg.REST.Timeout != 5*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.REST.Timeout)
	}
	if cfg.Rebalance.MarketCode() != "KRW-ETH" {
		t.Fatalf("unexpected market code %q", cfg.Rebalance.MarketCode())
	}
	if cfg.Rebalance.CheckInterval != time.Hour {
		t.Fatalf("unexpected interval %v", cfg.Rebalance.CheckInterval)
	}
}

func TestLoadRejectsBadThresholds(t *testing.T) {
	cases := []string{
		"rebalance:\n  lower_threshold: 0.7\n",
		"rebalance:\n  upper_threshold: 0.45\n",
		"rebalance:\n  target_ratio: 0.9\n  upper_threshold: 0.8\n",
	}
	for _, content := range cases {
		path := writeConfig(t, content)
		if _, err := Load(path); err == nil {
			t.Fatalf("expected threshold error for %q", content)
		}
	}
}

func TestLoadRejectsBadRecordTime(t *testing.T) {
	path := writeConfig(t, "rebalance:\n  record_time: \"9 am\"\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected record_time error")
	}
}

func TestLoadRequiresTimescaleDSN(t *testing.T) {
	path := writeConfig(t, "timescale:\n  enabled: true\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected dsn error when timescale enabled")
	}
}

func TestLoadMissingPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
