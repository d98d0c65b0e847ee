package clob

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"github.com/vmbbz/betmirror-sub005/pkg/auth"
	"github.com/vmbbz/betmirror-sub005/pkg/clob/cloberrors"
	"github.com/vmbbz/betmirror-sub005/pkg/clob/clobtypes"
	"github.com/vmbbz/betmirror-sub005/pkg/data"
	"github.com/vmbbz/betmirror-sub005/pkg/gamma"
	"github.com/vmbbz/betmirror-sub005/pkg/ratelimit"
)

var (
	priceFloor = decimal.RequireFromString("0.01")
	priceCeil  = decimal.RequireFromString("0.99")
)

// AdapterConfig tunes the policy layer around the raw CLOB client.
type AdapterConfig struct {
	SignatureType     auth.SignatureType
	Funder            *common.Address
	FeeRateBps        int64
	MinShareThreshold decimal.Decimal
	RequestTimeout    time.Duration
	DefaultTickSize   decimal.Decimal
	DefaultMinOrder   decimal.Decimal
}

// DefaultAdapterConfig returns the exchange's published defaults.
func DefaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		SignatureType:     auth.SignatureEOA,
		MinShareThreshold: decimal.NewFromInt(1),
		RequestTimeout:    12 * time.Second,
		DefaultTickSize:   decimal.RequireFromString("0.01"),
		DefaultMinOrder:   decimal.NewFromInt(5),
	}
}

// Adapter translates engine intents into rate-limited, retried exchange
// calls and normalizes responses into domain types. It owns the cached L2
// credentials and re-derives them once on auth failure.
type Adapter struct {
	clob   Client
	data   data.Client
	gamma  gamma.Client
	signer auth.Signer
	limits *ratelimit.Classes
	cfg    AdapterConfig

	credsMu sync.Mutex
	creds   *auth.APIKey

	// ApproveAllowance re-approves the on-chain spending allowance. Nil
	// means the capability is absent and allowance failures surface as-is.
	ApproveAllowance func(ctx context.Context) error

	// SubmitCashout moves quote currency off the exchange. Nil means the
	// capability is absent.
	SubmitCashout func(ctx context.Context, amount decimal.Decimal, destination common.Address) (string, error)
}

// NewAdapter wires the adapter over its collaborating clients.
func NewAdapter(clobClient Client, dataClient data.Client, gammaClient gamma.Client, signer auth.Signer, limits *ratelimit.Classes, cfg AdapterConfig) *Adapter {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 12 * time.Second
	}
	if cfg.DefaultTickSize.Sign() <= 0 {
		cfg.DefaultTickSize = decimal.RequireFromString("0.01")
	}
	if cfg.DefaultMinOrder.Sign() <= 0 {
		cfg.DefaultMinOrder = decimal.NewFromInt(5)
	}
	if limits == nil {
		limits = ratelimit.NewClasses(ratelimit.DefaultClassesConfig())
	}
	return &Adapter{
		clob:   clobClient,
		data:   dataClient,
		gamma:  gammaClient,
		signer: signer,
		limits: limits,
		cfg:    cfg,
	}
}

// FetchBalance returns the wallet's quote-currency cash balance.
func (a *Adapter) FetchBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()

	client, err := a.authedClient(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	var out decimal.Decimal
	err = a.limits.TradeReads.Submit(ctx, func() error {
		resp, err := client.Balance(ctx, address)
		if err != nil {
			return err
		}
		raw, err := decimal.NewFromString(resp.Balance)
		if err != nil {
			return fmt.Errorf("invalid balance %q: %w", resp.Balance, err)
		}
		// The exchange reports collateral in 6-decimal fixed point.
		out = raw.Shift(-usdcDecimals)
		return nil
	})
	return out, err
}

// GetOrderBook fetches the live book for one token.
func (a *Adapter) GetOrderBook(ctx context.Context, tokenID string) (*clobtypes.BookResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()

	var out *clobtypes.BookResponse
	err := a.limits.MarketReads.Submit(ctx, func() error {
		book, err := a.clob.OrderBook(ctx, tokenID)
		if err != nil {
			return err
		}
		out = book
		return nil
	})
	return out, err
}

// CancelOrder cancels one resting order; true means the exchange confirmed.
func (a *Adapter) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()

	client, err := a.authedClient(ctx)
	if err != nil {
		return false, err
	}

	var ok bool
	err = a.limits.OrderWrites.Submit(ctx, func() error {
		resp, err := client.CancelOrder(ctx, orderID)
		if err != nil {
			return err
		}
		for _, id := range resp.Canceled {
			if id == orderID {
				ok = true
			}
		}
		return nil
	})
	return ok, err
}

// Cashout moves quote currency to a destination wallet and returns the
// transaction hash.
func (a *Adapter) Cashout(ctx context.Context, amount decimal.Decimal, destination string) (string, error) {
	if a.SubmitCashout == nil {
		return "", fmt.Errorf("cashout is not supported by this adapter")
	}
	if amount.Sign() <= 0 {
		return "", fmt.Errorf("cashout amount must be positive")
	}
	if !common.IsHexAddress(destination) {
		return "", fmt.Errorf("invalid destination address %q", destination)
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()
	return a.SubmitCashout(ctx, amount, common.HexToAddress(destination))
}

// InvalidateCreds drops the cached L2 credentials so the next authenticated
// call re-derives them.
func (a *Adapter) InvalidateCreds() {
	a.credsMu.Lock()
	a.creds = nil
	a.credsMu.Unlock()
}

func (a *Adapter) authedClient(ctx context.Context) (Client, error) {
	a.credsMu.Lock()
	defer a.credsMu.Unlock()
	if a.creds.Valid() {
		return a.clob.WithAuth(a.signer, a.creds), nil
	}

	base := a.clob.WithAuth(a.signer, nil)
	creds, err := base.DeriveAPICreds(ctx)
	if err != nil {
		return nil, fmt.Errorf("derive api credentials: %w", err)
	}
	if !creds.Valid() {
		return nil, fmt.Errorf("exchange returned incomplete api credentials")
	}
	a.creds = creds
	logs.Info("[adapter] derived fresh api credentials")
	return a.clob.WithAuth(a.signer, creds), nil
}

// retryPolicy builds the bounded retry loop for order placement: exactly one
// retry, triggered only by auth or allowance failures, each healed once.
func (a *Adapter) retryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 2,
		Retryable: func(err error) bool {
			if cloberrors.IsAuth(err) {
				return true
			}
			return cloberrors.IsAllowance(err) && a.ApproveAllowance != nil
		},
		OnRetry: func(ctx context.Context, err error) error {
			if cloberrors.IsAuth(err) {
				a.InvalidateCreds()
				return nil
			}
			if cloberrors.IsAllowance(err) && a.ApproveAllowance != nil {
				logs.Warn("[adapter] insufficient allowance, re-approving")
				return a.ApproveAllowance(ctx)
			}
			return nil
		},
	}
}
