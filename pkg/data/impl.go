package data

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/vmbbz/betmirror-sub005/pkg/transport"
)

// BaseURL is the production wallet-activity endpoint.
const BaseURL = "https://data-api.polymarket.com"

type clientImpl struct {
	httpClient *transport.Client
}

// NewClient creates a wallet-activity client over the given transport.
func NewClient(httpClient *transport.Client) Client {
	return &clientImpl{httpClient: httpClient}
}

func (c *clientImpl) Trades(ctx context.Context, req *TradesRequest) ([]Trade, error) {
	if req == nil || req.User == "" {
		return nil, fmt.Errorf("user address is required")
	}
	q := url.Values{}
	q.Set("user", req.User)
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	var out []Trade
	if err := c.httpClient.Get(ctx, "/trades", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *clientImpl) Positions(ctx context.Context, req *PositionsRequest) ([]PositionData, error) {
	if req == nil || req.User == "" {
		return nil, fmt.Errorf("user address is required")
	}
	q := url.Values{}
	q.Set("user", req.User)
	if req.SizeThreshold > 0 {
		q.Set("sizeThreshold", strconv.FormatFloat(req.SizeThreshold, 'f', -1, 64))
	}
	var out []PositionData
	if err := c.httpClient.Get(ctx, "/positions", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *clientImpl) Value(ctx context.Context, user string) (decimal.Decimal, error) {
	if user == "" {
		return decimal.Zero, fmt.Errorf("user address is required")
	}
	q := url.Values{}
	q.Set("user", user)
	var out []struct {
		Value float64 `json:"value"`
	}
	if err := c.httpClient.Get(ctx, "/value", q, &out); err != nil {
		return decimal.Zero, err
	}
	if len(out) == 0 {
		return decimal.Zero, nil
	}
	return decimal.NewFromFloat(out[0].Value), nil
}
