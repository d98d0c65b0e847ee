package betmirror

import (
	"strings"
	"testing"
)

func TestDefaultConfigEndpoints(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.BaseURLs.CLOB == "" || cfg.BaseURLs.Gamma == "" || cfg.BaseURLs.Data == "" {
		t.Fatalf("default config is missing a service endpoint: %+v", cfg.BaseURLs)
	}
	if !strings.HasPrefix(cfg.BaseURLs.Feed, "wss://") {
		t.Fatalf("feed endpoint %q is not a websocket URL", cfg.BaseURLs.Feed)
	}
	if cfg.Timeout <= 0 {
		t.Fatal("default timeout must be positive")
	}
	if cfg.ChainID != 137 {
		t.Fatalf("chain id = %d, want polygon mainnet", cfg.ChainID)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation failure without a private key")
	}

	cfg.PrivateKey = testSessionKey
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cfg.ChainID = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation failure for zero chain id")
	}
}

func TestConfigMergeEnv(t *testing.T) {
	t.Setenv("BETMIRROR_PRIVATE_KEY", testSessionKey)
	t.Setenv("BETMIRROR_TRACKED_WALLETS", "0xaaa, 0xbbb,")
	t.Setenv("BETMIRROR_DATABASE_URL", "postgres://localhost/betmirror")

	cfg := DefaultConfig().MergeEnv()
	if cfg.PrivateKey != testSessionKey {
		t.Fatal("private key not merged from environment")
	}
	if len(cfg.Engine.TrackedWallets) != 2 || cfg.Engine.TrackedWallets[1] != "0xbbb" {
		t.Fatalf("tracked wallets = %v, want two trimmed entries", cfg.Engine.TrackedWallets)
	}
	if !cfg.persistenceEnabled() {
		t.Fatal("database URL should enable persistence")
	}
}
