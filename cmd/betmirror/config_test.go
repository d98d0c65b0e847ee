package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
tracked_wallets:
  - "0xSourceWallet"
market_making: true
multiplier: "0.5"
max_trade_usd: "25"
markets:
  - market_id: "0xmarket"
    token_id: "tok1"
    question: "Will it settle yes?"
endpoints:
  gamma: "https://gamma.test"
database:
  host: "db.internal"
  port: 5433
  name: "betmirror"
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if !cfg.Engine.CopyTradingEnabled {
		t.Fatal("tracked wallets should enable copy trading")
	}
	if !cfg.Engine.MarketMakingEnabled {
		t.Fatal("market_making flag not applied")
	}
	if got := cfg.Executor.Multiplier.String(); got != "0.5" {
		t.Fatalf("multiplier = %s, want 0.5", got)
	}
	if got := cfg.Executor.MaxTradeUSD.String(); got != "25" {
		t.Fatalf("max_trade_usd = %s, want 25", got)
	}
	if len(cfg.Scanner.Markets) != 1 || cfg.Scanner.Markets[0].TokenID != "tok1" {
		t.Fatalf("markets = %+v, want the configured market", cfg.Scanner.Markets)
	}
	if cfg.BaseURLs.Gamma != "https://gamma.test" {
		t.Fatalf("gamma endpoint = %q, want override", cfg.BaseURLs.Gamma)
	}
	if cfg.BaseURLs.CLOB == "" {
		t.Fatal("unset endpoints should keep defaults")
	}
	if cfg.Database.Host != "db.internal" || cfg.Database.Port != 5433 {
		t.Fatalf("database target = %+v, want file values", cfg.Database)
	}
}

func TestLoadConfigRejectsBadMultiplier(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(`multiplier: "lots"`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(path); err == nil {
		t.Fatal("expected an error for a non-numeric multiplier")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := loadConfig("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
