package main

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	betmirror "github.com/vmbbz/betmirror-sub005"
	"github.com/vmbbz/betmirror-sub005/pkg/mm"
)

// fileConfig is the YAML shape of a betmirror config file. Every field is
// optional; omitted values keep their defaults. Credentials are deliberately
// absent, they come from the environment.
type fileConfig struct {
	Wallet         string   `yaml:"wallet"`
	TrackedWallets []string `yaml:"tracked_wallets"`
	RPCURL         string   `yaml:"rpc_url"`

	CopyTrading  bool   `yaml:"copy_trading"`
	MarketMaking bool   `yaml:"market_making"`
	Multiplier   string `yaml:"multiplier"`
	MaxTradeUSD  string `yaml:"max_trade_usd"`

	Markets []struct {
		MarketID string `yaml:"market_id"`
		TokenID  string `yaml:"token_id"`
		Question string `yaml:"question"`
	} `yaml:"markets"`

	Endpoints struct {
		CLOB  string `yaml:"clob"`
		Gamma string `yaml:"gamma"`
		Data  string `yaml:"data"`
		Feed  string `yaml:"feed"`
	} `yaml:"endpoints"`

	Database struct {
		URL      string `yaml:"url"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"ssl_mode"`
	} `yaml:"database"`
}

func loadConfig(path string) (betmirror.Config, error) {
	cfg := betmirror.DefaultConfig()
	cfg.Engine.CopyTradingEnabled = true

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
		if err := applyFile(&cfg, fc); err != nil {
			return cfg, err
		}
	}

	return cfg.MergeEnv(), nil
}

func applyFile(cfg *betmirror.Config, fc fileConfig) error {
	if fc.Wallet != "" {
		cfg.Engine.WalletAddress = fc.Wallet
	}
	if len(fc.TrackedWallets) > 0 {
		cfg.Engine.TrackedWallets = fc.TrackedWallets
	}
	if fc.RPCURL != "" {
		cfg.RPCURL = fc.RPCURL
	}

	cfg.Engine.CopyTradingEnabled = fc.CopyTrading || len(fc.TrackedWallets) > 0
	cfg.Engine.MarketMakingEnabled = fc.MarketMaking

	if fc.Multiplier != "" {
		mult, err := decimal.NewFromString(fc.Multiplier)
		if err != nil {
			return fmt.Errorf("invalid multiplier %q: %w", fc.Multiplier, err)
		}
		cfg.Executor.Multiplier = mult
	}
	if fc.MaxTradeUSD != "" {
		maxUSD, err := decimal.NewFromString(fc.MaxTradeUSD)
		if err != nil {
			return fmt.Errorf("invalid max_trade_usd %q: %w", fc.MaxTradeUSD, err)
		}
		cfg.Executor.MaxTradeUSD = maxUSD
	}

	for _, m := range fc.Markets {
		cfg.Scanner.Markets = append(cfg.Scanner.Markets, mm.TrackedMarket{
			MarketID: m.MarketID,
			TokenID:  m.TokenID,
			Question: m.Question,
		})
	}

	if fc.Endpoints.CLOB != "" {
		cfg.BaseURLs.CLOB = fc.Endpoints.CLOB
	}
	if fc.Endpoints.Gamma != "" {
		cfg.BaseURLs.Gamma = fc.Endpoints.Gamma
	}
	if fc.Endpoints.Data != "" {
		cfg.BaseURLs.Data = fc.Endpoints.Data
	}
	if fc.Endpoints.Feed != "" {
		cfg.BaseURLs.Feed = fc.Endpoints.Feed
	}

	cfg.Database.ConnString = fc.Database.URL
	cfg.Database.Host = fc.Database.Host
	cfg.Database.Port = fc.Database.Port
	cfg.Database.User = fc.Database.User
	cfg.Database.Password = fc.Database.Password
	cfg.Database.Database = fc.Database.Name
	cfg.Database.SSLMode = fc.Database.SSLMode

	return nil
}
