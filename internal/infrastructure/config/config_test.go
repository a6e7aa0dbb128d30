package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.App.PollIntervalMs != 5000 || cfg.App.DisplayLimit != 15 {
		t.Fatalf("app defaults wrong: %+v", cfg.App)
	}
	if len(cfg.Pairs.Selected) == 0 {
		t.Fatal("default pair catalog expected")
	}
	// 已知交易所默认全部启用公共行情
	if len(cfg.EnabledExchanges()) != 5 {
		t.Fatalf("enabled exchanges = %v", cfg.EnabledExchanges())
	}
	if cfg.Exchanges["okx"].RateLimitRPS != 5 {
		t.Fatalf("okx default rate limit = %v, want 5", cfg.Exchanges["okx"].RateLimitRPS)
	}
}

func TestLoadClampsAutoTrade(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[autotrade]
open_threshold = 9.5
close_threshold = -2.0
max_contracts = 99
bank_percent = 200
`))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	at := cfg.AutoTradeConfig()
	if at.OpenThreshold != 2.0 || at.CloseThreshold != 0 {
		t.Fatalf("thresholds not clamped: %+v", at)
	}
	if at.MaxContracts != 20 || at.BankPercent != 100 {
		t.Fatalf("counts not clamped: %+v", at)
	}
}

func TestLoadNormalizesPairs(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[pairs]
selected = [" btc/usdt ", "BTC/USDT", "eth/usdt", "garbage"]
`))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	want := []string{"BTC/USDT", "ETH/USDT"}
	if len(cfg.Pairs.Selected) != len(want) {
		t.Fatalf("pairs = %v, want %v", cfg.Pairs.Selected, want)
	}
	for i, p := range want {
		if cfg.Pairs.Selected[i] != p {
			t.Fatalf("pairs[%d] = %s, want %s", i, cfg.Pairs.Selected[i], p)
		}
	}
}

func TestLoadRejectsUnknownExchange(t *testing.T) {
	_, err := Load(writeConfig(t, `
[exchange.hyperliquid]
enabled = true
`))
	if err == nil {
		t.Fatal("unknown exchange must be rejected")
	}
}

func TestLoadEnvSecrets(t *testing.T) {
	t.Setenv("BINANCE_API_KEY", "k")
	t.Setenv("BINANCE_API_SECRET", "s")
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Exchanges["binance"].APIKey != "k" || cfg.Exchanges["binance"].APISecret != "s" {
		t.Fatal("credentials must come from the environment")
	}
}
