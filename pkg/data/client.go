// Package data provides the client for the exchange's wallet-activity
// service: trades and positions keyed by wallet address. The signal monitor
// uses it to watch tracked wallets; the orchestrator uses it for position
// synchronization.
package data

import (
	"context"

	"github.com/shopspring/decimal"
)

// Client defines the wallet-activity surface.
type Client interface {
	// Trades lists the most recent trades made by one wallet, newest first.
	Trades(ctx context.Context, req *TradesRequest) ([]Trade, error)
	// Positions lists a wallet's current open positions.
	Positions(ctx context.Context, req *PositionsRequest) ([]PositionData, error)
	// Value returns the aggregate USD value of a wallet's positions.
	Value(ctx context.Context, user string) (decimal.Decimal, error)
}

// TradesRequest filters the trade listing.
type TradesRequest struct {
	User  string
	Limit int
}

// Trade is one observed exchange trade.
type Trade struct {
	ID              string  `json:"transactionHash"`
	ProxyWallet     string  `json:"proxyWallet"`
	Side            string  `json:"side"`
	ConditionID     string  `json:"conditionId"`
	TokenID         string  `json:"asset"`
	Outcome         string  `json:"outcome"`
	Title           string  `json:"title"`
	Size            float64 `json:"size"`
	Price           float64 `json:"price"`
	Timestamp       int64   `json:"timestamp"`
	TransactionHash string  `json:"transactionHash"`
}

// USDSize returns the trade's notional in quote currency.
func (t Trade) USDSize() decimal.Decimal {
	return decimal.NewFromFloat(t.Size).Mul(decimal.NewFromFloat(t.Price))
}

// PositionsRequest filters the position listing.
type PositionsRequest struct {
	User          string
	SizeThreshold float64
}

// PositionData is a raw exchange position before enrichment.
type PositionData struct {
	ConditionID  string  `json:"conditionId"`
	TokenID      string  `json:"asset"`
	Outcome      string  `json:"outcome"`
	Title        string  `json:"title"`
	Slug         string  `json:"slug"`
	Icon         string  `json:"icon"`
	Size         float64 `json:"size"`
	AvgPrice     float64 `json:"avgPrice"`
	InitialValue float64 `json:"initialValue"`
	CurrentValue float64 `json:"currentValue"`
	CurPrice     float64 `json:"curPrice"`
}
