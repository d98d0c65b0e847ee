// Package betmirror assembles a complete trading session: service clients,
// the exchange adapter, execution, signal sources, the liquidity scanner and
// the orchestrating engine, wired from one Config.
package betmirror

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/vmbbz/betmirror-sub005/pkg/auth"
	"github.com/vmbbz/betmirror-sub005/pkg/bridge"
	"github.com/vmbbz/betmirror-sub005/pkg/clob"
	"github.com/vmbbz/betmirror-sub005/pkg/data"
	"github.com/vmbbz/betmirror-sub005/pkg/engine"
	"github.com/vmbbz/betmirror-sub005/pkg/executor"
	"github.com/vmbbz/betmirror-sub005/pkg/gamma"
	"github.com/vmbbz/betmirror-sub005/pkg/mm"
	"github.com/vmbbz/betmirror-sub005/pkg/ratelimit"
	"github.com/vmbbz/betmirror-sub005/pkg/signals"
	"github.com/vmbbz/betmirror-sub005/pkg/store"
	"github.com/vmbbz/betmirror-sub005/pkg/transport"
)

// Option mutates the session configuration before wiring.
type Option func(*Config)

// WithHTTPClient overrides the HTTP client used by every REST service.
func WithHTTPClient(doer transport.Doer) Option {
	return func(c *Config) { c.HTTPClient = doer }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Config) { c.UserAgent = ua }
}

// WithBaseURLs overrides all service endpoints at once.
func WithBaseURLs(urls BaseURLs) Option {
	return func(c *Config) { c.BaseURLs = urls }
}

// WithPrivateKey sets the follower wallet's signing key.
func WithPrivateKey(hexKey string) Option {
	return func(c *Config) { c.PrivateKey = hexKey }
}

// WithTrackedWallets sets the source wallets to mirror.
func WithTrackedWallets(wallets ...string) Option {
	return func(c *Config) { c.Engine.TrackedWallets = wallets }
}

// WithDatabase enables persistence against the given target.
func WithDatabase(opt store.Option) Option {
	return func(c *Config) { c.Database = opt }
}

// InitError records a component that failed to initialize.
type InitError struct {
	Component string
	Err       error
}

func (e InitError) Error() string {
	return fmt.Sprintf("%s: %v", e.Component, e.Err)
}

func (e InitError) Unwrap() error { return e.Err }

// InitErrors aggregates initialization failures across components.
type InitErrors []InitError

func (e InitErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ie := range e {
		msgs[i] = ie.Error()
	}
	return "session init: " + strings.Join(msgs, "; ")
}

// Session is one follower wallet's fully wired trading stack. Optional
// components (feed, bridge, store) are nil when their configuration is
// absent.
type Session struct {
	Config Config

	CLOB  clob.Client
	Gamma gamma.Client
	Data  data.Client

	Signer  *auth.PrivateKeySigner
	Limits  *ratelimit.Classes
	Adapter *clob.Adapter

	Executor *executor.Service
	Monitor  *signals.Monitor
	Feed     *signals.Feed
	Scanner  *mm.Scanner
	Store    *store.Store
	Bus      *engine.Bus
	Engine   *engine.Engine
}

// NewSession wires a session from the configuration. Any component failure
// aborts with the collected InitErrors.
func NewSession(cfg Config, opts ...Option) (*Session, error) {
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var initErrs InitErrors
	fail := func(component string, err error) {
		initErrs = append(initErrs, InitError{Component: component, Err: err})
	}

	doer := cfg.HTTPClient
	if doer == nil {
		doer = &http.Client{Timeout: cfg.Timeout}
	}
	service := func(baseURL string) *transport.Client {
		tc := transport.NewClient(doer, baseURL)
		if cfg.UserAgent != "" {
			tc.SetUserAgent(cfg.UserAgent)
		}
		return tc
	}

	s := &Session{
		Config: cfg,
		CLOB:   clob.NewClient(service(cfg.BaseURLs.CLOB)),
		Gamma:  gamma.NewClient(service(cfg.BaseURLs.Gamma)),
		Data:   data.NewClient(service(cfg.BaseURLs.Data)),
		Limits: ratelimit.NewClasses(cfg.RateLimits),
		Bus:    engine.NewBus(0),
	}

	signer, err := auth.NewPrivateKeySigner(cfg.PrivateKey, cfg.ChainID)
	if err != nil {
		fail("signer", err)
		return nil, initErrs
	}
	s.Signer = signer
	if cfg.Engine.WalletAddress == "" {
		cfg.Engine.WalletAddress = signer.Address().Hex()
		s.Config.Engine.WalletAddress = cfg.Engine.WalletAddress
	}

	s.Adapter = clob.NewAdapter(s.CLOB, s.Data, s.Gamma, signer, s.Limits, cfg.Adapter)

	if cfg.RPCURL != "" {
		backend, err := ethclient.Dial(cfg.RPCURL)
		if err != nil {
			fail("bridge", err)
		} else {
			b := bridge.NewClient(backend, signer, common.Address{})
			s.Adapter.SubmitCashout = b.Withdraw
		}
	}

	if cfg.persistenceEnabled() {
		st, err := store.Open(cfg.Database)
		if err != nil {
			fail("store", err)
		} else {
			s.Store = st
		}
	}

	s.Executor = executor.NewService(s.Adapter, s.Data, cfg.Executor)
	s.Monitor = signals.NewMonitor(s.Data, cfg.Engine.TrackedWallets, cfg.Monitor)

	if cfg.BaseURLs.Feed != "" {
		feed, err := signals.NewFeed(cfg.BaseURLs.Feed, s.Monitor, cfg.Feed)
		if err != nil {
			fail("feed", err)
		} else {
			s.Feed = feed
		}
	}

	s.Scanner = mm.NewScanner(s.Adapter, s.Adapter, cfg.Scanner)

	var persistence engine.Store
	if s.Store != nil {
		persistence = s.Store
	}
	s.Engine = engine.New(s.Adapter, s.Gamma, s.Executor, s.Scanner, s.Monitor, persistence, s.Bus, cfg.Engine)

	if len(initErrs) > 0 {
		return nil, initErrs
	}
	return s, nil
}

// Start runs the engine and, when configured, the live feed.
func (s *Session) Start(ctx context.Context) error {
	if err := s.Engine.Start(ctx); err != nil {
		return err
	}
	if s.Feed != nil && s.Config.Engine.CopyTradingEnabled {
		s.Feed.Start(s.Config.Engine.TrackedWallets)
	}
	return nil
}

// UpdateConfig reconfigures the running engine and keeps the live feed's
// wallet subscription in step with the monitor's.
func (s *Session) UpdateConfig(ctx context.Context, next engine.Config) {
	s.Engine.UpdateConfig(ctx, next)
	if s.Feed != nil {
		s.Feed.SetWallets(next.TrackedWallets)
	}
	s.Config.Engine = next
}

// Stop shuts the session down in reverse start order.
func (s *Session) Stop() error {
	if s.Feed != nil {
		s.Feed.Close()
	}
	s.Engine.Stop()
	if s.Store != nil {
		return s.Store.Close()
	}
	return nil
}
