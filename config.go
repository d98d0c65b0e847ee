package betmirror

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vmbbz/betmirror-sub005/pkg/clob"
	"github.com/vmbbz/betmirror-sub005/pkg/engine"
	"github.com/vmbbz/betmirror-sub005/pkg/executor"
	"github.com/vmbbz/betmirror-sub005/pkg/mm"
	"github.com/vmbbz/betmirror-sub005/pkg/ratelimit"
	"github.com/vmbbz/betmirror-sub005/pkg/signals"
	"github.com/vmbbz/betmirror-sub005/pkg/store"
	"github.com/vmbbz/betmirror-sub005/pkg/transport"
)

// BaseURLs defines per-service base endpoints.
type BaseURLs struct {
	CLOB  string
	Gamma string
	Data  string
	Feed  string
}

// Config holds one trading session's shared configuration. Zero sub-configs
// fall back to their package defaults at wiring time.
type Config struct {
	BaseURLs   BaseURLs
	HTTPClient transport.Doer
	UserAgent  string
	Timeout    time.Duration

	// PrivateKey is the hex-encoded signing key for the follower wallet.
	PrivateKey string
	ChainID    int64

	// RPCURL enables on-chain cashouts when set.
	RPCURL string

	// Database enables persistence when a host or connection string is set.
	Database store.Option

	RateLimits ratelimit.ClassesConfig
	Adapter    clob.AdapterConfig
	Executor   executor.Config
	Monitor    signals.MonitorConfig
	Feed       signals.FeedConfig
	Scanner    mm.Config
	Engine     engine.Config
}

// DefaultConfig returns the production endpoints and published defaults.
func DefaultConfig() Config {
	return Config{
		BaseURLs: BaseURLs{
			CLOB:  clob.BaseURL,
			Gamma: "https://gamma-api.polymarket.com",
			Data:  "https://data-api.polymarket.com",
			Feed:  signals.FeedURL,
		},
		UserAgent:  "betmirror/1.0",
		Timeout:    30 * time.Second,
		ChainID:    137,
		RateLimits: ratelimit.DefaultClassesConfig(),
		Adapter:    clob.DefaultAdapterConfig(),
		Executor:   executor.DefaultConfig(),
		Monitor:    signals.DefaultMonitorConfig(),
		Feed:       signals.DefaultFeedConfig(),
		Scanner:    mm.DefaultConfig(),
		Engine:     engine.DefaultConfig(),
	}
}

// Validate reports whether the configuration can open a trading session.
func (c Config) Validate() error {
	if c.PrivateKey == "" {
		return fmt.Errorf("private key is required")
	}
	if c.ChainID <= 0 {
		return fmt.Errorf("chain id must be positive")
	}
	if c.BaseURLs.CLOB == "" || c.BaseURLs.Gamma == "" || c.BaseURLs.Data == "" {
		return fmt.Errorf("service base URLs are required")
	}
	return nil
}

// MergeEnv overlays environment variables onto the configuration so secrets
// stay out of config files.
func (c Config) MergeEnv() Config {
	if v := os.Getenv("BETMIRROR_PRIVATE_KEY"); v != "" {
		c.PrivateKey = v
	}
	if v := os.Getenv("BETMIRROR_WALLET"); v != "" {
		c.Engine.WalletAddress = v
	}
	if v := os.Getenv("BETMIRROR_TRACKED_WALLETS"); v != "" {
		parts := strings.Split(v, ",")
		wallets := parts[:0]
		for _, w := range parts {
			if w = strings.TrimSpace(w); w != "" {
				wallets = append(wallets, w)
			}
		}
		c.Engine.TrackedWallets = wallets
	}
	if v := os.Getenv("BETMIRROR_RPC_URL"); v != "" {
		c.RPCURL = v
	}
	if v := os.Getenv("BETMIRROR_DATABASE_URL"); v != "" {
		c.Database.ConnString = v
	}
	return c
}

// persistenceEnabled reports whether a database target was configured.
func (c Config) persistenceEnabled() bool {
	return c.Database.ConnString != "" || c.Database.Host != ""
}
