// Package executor turns trade signals and exit requests into concrete
// exchange orders: it sizes the trade, guards against duplicate in-flight
// orders, and records the fill for downstream accounting.
package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"github.com/vmbbz/betmirror-sub005/pkg/clob/clobtypes"
	"github.com/vmbbz/betmirror-sub005/pkg/data"
	"github.com/vmbbz/betmirror-sub005/pkg/sizing"
	"github.com/vmbbz/betmirror-sub005/pkg/types"
)

// ErrInFlight is returned when an identical order is already being placed;
// the duplicate signal is coalesced, never submitted twice.
var ErrInFlight = fmt.Errorf("an order for this market, token and side is already in flight")

// Exchange is the adapter surface the executor submits through.
type Exchange interface {
	CreateOrder(ctx context.Context, intent types.OrderIntent) clobtypes.OrderResult
}

// Config tunes sizing and duplicate suppression.
type Config struct {
	Multiplier  decimal.Decimal
	MaxTradeUSD decimal.Decimal // zero means uncapped
	LockTTL     time.Duration
}

// DefaultConfig returns 1x copy sizing with a 30-second in-flight lock.
func DefaultConfig() Config {
	return Config{
		Multiplier: decimal.NewFromInt(1),
		LockTTL:    30 * time.Second,
	}
}

// Execution is the record of one signal or exit attempt.
type Execution struct {
	ID         string
	Signal     types.TradeSignal
	SizedUSD   decimal.Decimal
	Ratio      decimal.Decimal
	Reason     string
	Skipped    bool
	Result     clobtypes.OrderResult
	ProfitUSD  decimal.Decimal
	ExecutedAt time.Time
}

// Service is the Execution Service: one instance per engine session.
type Service struct {
	exchange Exchange
	wallets  data.Client
	cfg      Config

	// EstimateProfit computes realized profit for a SELL from the entry
	// price, fill price and filled shares. Nil selects the realized-PnL
	// default.
	EstimateProfit func(entry, fill, shares decimal.Decimal) decimal.Decimal

	mu    sync.Mutex
	locks map[string]time.Time
	now   func() time.Time
}

// NewService wires the executor over the exchange adapter and the wallet
// activity client used for source-bankroll lookups.
func NewService(exchange Exchange, wallets data.Client, cfg Config) *Service {
	if cfg.Multiplier.Sign() <= 0 {
		cfg.Multiplier = decimal.NewFromInt(1)
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	return &Service{
		exchange: exchange,
		wallets:  wallets,
		cfg:      cfg,
		locks:    make(map[string]time.Time),
		now:      time.Now,
	}
}

// ExecuteSignal copies one observed trade: size it proportionally against
// the follower's balance, skip with a reason when sizing says no, otherwise
// submit and record the fill.
func (s *Service) ExecuteSignal(ctx context.Context, sig types.TradeSignal, followerBalance decimal.Decimal) (*Execution, error) {
	if !sig.Side.Valid() {
		return nil, fmt.Errorf("signal %s has invalid side %q", sig.ID, sig.Side)
	}
	key := lockKey(sig.MarketID, sig.TokenID, sig.Side)
	if !s.acquire(key) {
		return nil, ErrInFlight
	}
	defer s.release(key)

	sourceBalance := s.sourceBalance(ctx, sig.Trader)
	sized := sizing.Compute(sizing.Input{
		FollowerBalance: followerBalance,
		SourceBalance:   sourceBalance,
		SourceTradeUSD:  sig.SizeUSD,
		Multiplier:      s.cfg.Multiplier,
		MaxTradeUSD:     s.cfg.MaxTradeUSD,
	})

	exec := &Execution{
		ID:         uuid.NewString(),
		Signal:     sig,
		SizedUSD:   sized.TargetUSD,
		Ratio:      sized.Ratio,
		Reason:     sized.Reason,
		ExecutedAt: s.now(),
	}
	if sized.TargetUSD.Sign() == 0 {
		logs.Infof("[executor] signal=%s skipped: %s", sig.ID, sized.Reason)
		exec.Skipped = true
		return exec, nil
	}

	exec.Result = s.exchange.CreateOrder(ctx, types.OrderIntent{
		MarketID: sig.MarketID,
		TokenID:  sig.TokenID,
		Side:     sig.Side,
		SizeUSD:  sized.TargetUSD,
	})
	if exec.Result.Success {
		logs.Infof("[executor] signal=%s filled %s shares at %s (%s)",
			sig.ID, exec.Result.SharesFilled, exec.Result.PriceFilled, sized.Reason)
	} else {
		logs.Warnf("[executor] signal=%s order failed: %s", sig.ID, exec.Result.Error)
	}
	return exec, nil
}

// ExecuteExit liquidates part or all of a position with an explicit share
// count so the exit is exact. Overdraws are rejected before submission.
func (s *Service) ExecuteExit(ctx context.Context, pos types.Position, shares decimal.Decimal) (*Execution, error) {
	if shares.Sign() <= 0 {
		return nil, fmt.Errorf("exit shares must be positive, got %s", shares)
	}
	if shares.GreaterThan(pos.Shares) {
		return nil, fmt.Errorf("exit of %s shares exceeds position of %s", shares, pos.Shares)
	}
	key := lockKey(pos.MarketID, pos.TokenID, types.SideSell)
	if !s.acquire(key) {
		return nil, ErrInFlight
	}
	defer s.release(key)

	exec := &Execution{
		ID: uuid.NewString(),
		Signal: types.TradeSignal{
			MarketID: pos.MarketID,
			TokenID:  pos.TokenID,
			Outcome:  pos.Outcome,
			Title:    pos.Title,
			Side:     types.SideSell,
			Source:   "exit",
		},
		ExecutedAt: s.now(),
	}
	exec.Result = s.exchange.CreateOrder(ctx, types.OrderIntent{
		MarketID:   pos.MarketID,
		TokenID:    pos.TokenID,
		Side:       types.SideSell,
		SizeShares: shares,
	})
	if exec.Result.Success {
		exec.ProfitUSD = s.profit(pos.EntryPrice, exec.Result.PriceFilled, exec.Result.SharesFilled)
		logs.Infof("[executor] exit market=%s sold %s shares, profit %s",
			pos.MarketID, exec.Result.SharesFilled, exec.ProfitUSD)
	}
	return exec, nil
}

// profit is realized PnL: fill price against entry price over the filled
// shares, unless a custom estimator was installed.
func (s *Service) profit(entry, fill, shares decimal.Decimal) decimal.Decimal {
	if s.EstimateProfit != nil {
		return s.EstimateProfit(entry, fill, shares)
	}
	return fill.Sub(entry).Mul(shares)
}

func (s *Service) sourceBalance(ctx context.Context, trader string) decimal.Decimal {
	if s.wallets == nil || trader == "" {
		return decimal.Zero
	}
	value, err := s.wallets.Value(ctx, trader)
	if err != nil {
		logs.Warnf("[executor] source bankroll lookup failed for %s: %v", trader, err)
		return decimal.Zero
	}
	return value
}

func lockKey(marketID, tokenID string, side types.Side) string {
	return marketID + "|" + tokenID + "|" + string(side)
}

// acquire takes the in-flight lock for one (market, token, side) tuple.
// Stale locks past the TTL are stolen so a crashed attempt cannot wedge the
// tuple forever.
func (s *Service) acquire(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if at, held := s.locks[key]; held && s.now().Sub(at) < s.cfg.LockTTL {
		return false
	}
	s.locks[key] = s.now()
	return true
}

func (s *Service) release(key string) {
	s.mu.Lock()
	delete(s.locks, key)
	s.mu.Unlock()
}
