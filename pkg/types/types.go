// Package types holds the domain model shared across the engine: trade
// signals observed on tracked wallets, follower positions, balance
// snapshots, order intents, and resting market-making quotes.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Valid reports whether the side is one of the two accepted values.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// MarketState is the lifecycle state of a tracked market. ACTIVE is the only
// non-terminal state; transitions are recomputed from fresh exchange data on
// every sync rather than edge-triggered.
type MarketState string

const (
	MarketActive   MarketState = "ACTIVE"
	MarketClosed   MarketState = "CLOSED"
	MarketArchived MarketState = "ARCHIVED"
	MarketResolved MarketState = "RESOLVED"
)

// Terminal reports whether the state admits no further transitions.
func (s MarketState) Terminal() bool {
	return s == MarketClosed || s == MarketArchived || s == MarketResolved
}

// TradeSignal is an observed trade by a tracked wallet. Immutable once
// emitted; consumed exactly once by the execution service.
type TradeSignal struct {
	ID        string
	Trader    string
	MarketID  string
	TokenID   string
	Outcome   string
	Title     string
	Side      Side
	SizeUSD   decimal.Decimal
	Shares    decimal.Decimal
	Price     decimal.Decimal
	Timestamp time.Time
	Source    string
}

// Position is a follower's open exposure to one (market, outcome) pair.
type Position struct {
	MarketID     string
	TokenID      string
	Outcome      string
	Title        string
	Slug         string
	Icon         string
	EntryPrice   decimal.Decimal
	Shares       decimal.Decimal
	InvestedUSD  decimal.Decimal
	CurrentPrice decimal.Decimal
	CurrentValue decimal.Decimal
	PnL          decimal.Decimal
	State        MarketState
	ManagedByMM  bool

	// MissingSyncs counts consecutive syncs where the exchange no longer
	// reported this position; at two the position is confirmed gone.
	MissingSyncs int
	UpdatedAt    time.Time
}

// BalanceSnapshot is the cash balance plus aggregate position value derived
// from the latest successful sync, never from a partially-applied one.
type BalanceSnapshot struct {
	CashUSD      decimal.Decimal
	PositionsUSD decimal.Decimal
	TotalUSD     decimal.Decimal
	Timestamp    time.Time
}

// OrderIntent is an ephemeral instruction for one execution attempt plus its
// retries. Exactly one of SizeUSD or SizeShares is set: USD sizing converts
// to shares against the live book, explicit shares make exits exact.
type OrderIntent struct {
	MarketID   string
	TokenID    string
	Side       Side
	SizeUSD    decimal.Decimal
	SizeShares decimal.Decimal
	PriceLimit decimal.Decimal // zero means "use the best opposing quote"
}

// QuoteStatus is the lifecycle of a resting market-making quote.
type QuoteStatus string

const (
	QuotePosted         QuoteStatus = "posted"
	QuoteFilled         QuoteStatus = "filled"
	QuoteStaleCancelled QuoteStatus = "stale_cancelled"
	QuoteSuperseded     QuoteStatus = "superseded"
)

// Quote is a resting bid or ask the engine has posted on a market, together
// with the inventory skew that produced it.
type Quote struct {
	MarketID string
	TokenID  string
	Side     Side
	Price    decimal.Decimal
	Size     decimal.Decimal
	Skew     decimal.Decimal
	OrderID  string
	PostedAt time.Time
	Status   QuoteStatus
}
