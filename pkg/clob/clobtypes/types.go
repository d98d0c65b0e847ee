// Package clobtypes defines the wire types for the exchange's central limit
// order book API and the normalized results the policy layer branches on.
package clobtypes

import (
	"github.com/shopspring/decimal"

	"github.com/vmbbz/betmirror-sub005/pkg/types"
)

// OrderType is the exchange order time-in-force.
type OrderType string

const (
	OrderTypeGTC OrderType = "GTC"
	OrderTypeGTD OrderType = "GTD"
	OrderTypeFOK OrderType = "FOK"
	OrderTypeFAK OrderType = "FAK"
)

// PriceLevel is one resting level of the book.
type PriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// BookResponse is the live order book for one outcome token. TickSize and
// MinOrderSize may be empty; callers fall back to market metadata.
type BookResponse struct {
	MarketID     string       `json:"market"`
	AssetID      string       `json:"asset_id"`
	Bids         []PriceLevel `json:"bids"`
	Asks         []PriceLevel `json:"asks"`
	TickSize     string       `json:"tick_size"`
	MinOrderSize string       `json:"min_order_size"`
}

// BestBid returns the highest bid, if any.
func (b *BookResponse) BestBid() (decimal.Decimal, bool) {
	return bestLevel(b.Bids)
}

// BestAsk returns the lowest ask, if any.
func (b *BookResponse) BestAsk() (decimal.Decimal, bool) {
	return bestLevel(b.Asks)
}

func bestLevel(levels []PriceLevel) (decimal.Decimal, bool) {
	if len(levels) == 0 {
		return decimal.Zero, false
	}
	p, err := decimal.NewFromString(levels[0].Price)
	if err != nil {
		return decimal.Zero, false
	}
	return p, true
}

// MidpointResponse is the live midpoint price for one token.
type MidpointResponse struct {
	Mid string `json:"mid"`
}

// BalanceResponse is the follower's quote-currency balance.
type BalanceResponse struct {
	Balance string `json:"balance"`
}

// Order is the signed order payload submitted to the exchange.
type Order struct {
	Salt          types.U256 `json:"salt"`
	Maker         string     `json:"maker"`
	Signer        string     `json:"signer"`
	Taker         string     `json:"taker"`
	TokenID       types.U256 `json:"tokenId"`
	MakerAmount   string     `json:"makerAmount"`
	TakerAmount   string     `json:"takerAmount"`
	Expiration    string     `json:"expiration"`
	Nonce         string     `json:"nonce"`
	FeeRateBps    string     `json:"feeRateBps"`
	Side          string     `json:"side"`
	SignatureType int        `json:"signatureType"`
	Signature     string     `json:"signature"`
}

// CreateOrderRequest wraps a signed order with its time-in-force.
type CreateOrderRequest struct {
	Order     Order     `json:"order"`
	Owner     string    `json:"owner"`
	OrderType OrderType `json:"orderType"`
}

// OrderResponse is the exchange's raw placement response.
type OrderResponse struct {
	Success           bool     `json:"success"`
	ErrorMsg          string   `json:"errorMsg"`
	OrderID           string   `json:"orderID"`
	TransactionHashes []string `json:"transactionsHashes"`
	Status            string   `json:"status"`
	TakingAmount      string   `json:"takingAmount"`
	MakingAmount      string   `json:"makingAmount"`
}

// CancelResponse is the exchange's cancellation response.
type CancelResponse struct {
	Canceled []string `json:"canceled"`
}

// Typed outcome strings returned to the policy layer instead of exceptions.
const (
	OutcomeInsufficientFunds  = "insufficient_funds"
	OutcomeSkippedMinSize     = "skipped_min_size_limit"
	OutcomeSkippedNoLiquidity = "skipped_no_liquidity"
	OutcomeFailed             = "failed"
)

// OrderResult is the normalized outcome of one placement attempt. Policy
// rejections set Error to a typed outcome string; they are not Go errors.
type OrderResult struct {
	Success      bool
	OrderID      string
	TxHash       string
	SharesFilled decimal.Decimal
	PriceFilled  decimal.Decimal
	Error        string
}

// Failure builds a failed result with a typed outcome.
func Failure(outcome string) OrderResult {
	return OrderResult{Error: outcome}
}
