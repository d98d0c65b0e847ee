package data

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/vmbbz/betmirror-sub005/pkg/transport"
)

type staticDoer struct {
	responses map[string]string
}

func (d *staticDoer) Do(req *http.Request) (*http.Response, error) {
	key := req.URL.Path
	if req.URL.RawQuery != "" {
		key += "?" + req.URL.RawQuery
	}
	payload, ok := d.responses[key]
	if !ok {
		return nil, fmt.Errorf("unexpected request %q", key)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewBufferString(payload)),
		Header:     make(http.Header),
	}, nil
}

func TestTrades(t *testing.T) {
	doer := &staticDoer{
		responses: map[string]string{
			"/trades?limit=5&user=0xabc": `[{"transactionHash":"0x1","side":"BUY","asset":"t1","size":100,"price":0.5,"timestamp":1700000000}]`,
		},
	}
	client := NewClient(transport.NewClient(doer, BaseURL))

	trades, err := client.Trades(context.Background(), &TradesRequest{User: "0xabc", Limit: 5})
	if err != nil {
		t.Fatalf("Trades failed: %v", err)
	}
	if len(trades) != 1 || trades[0].TokenID != "t1" {
		t.Errorf("unexpected trades: %+v", trades)
	}
	if trades[0].USDSize().String() != "50" {
		t.Errorf("expected 50 USD notional, got %s", trades[0].USDSize())
	}
}

func TestPositions(t *testing.T) {
	doer := &staticDoer{
		responses: map[string]string{
			"/positions?sizeThreshold=1&user=0xabc": `[{"conditionId":"m1","asset":"t1","outcome":"Yes","size":20,"avgPrice":0.4,"curPrice":0.55,"currentValue":11}]`,
		},
	}
	client := NewClient(transport.NewClient(doer, BaseURL))

	positions, err := client.Positions(context.Background(), &PositionsRequest{User: "0xabc", SizeThreshold: 1})
	if err != nil {
		t.Fatalf("Positions failed: %v", err)
	}
	if len(positions) != 1 || positions[0].ConditionID != "m1" {
		t.Errorf("unexpected positions: %+v", positions)
	}
}

func TestValue(t *testing.T) {
	doer := &staticDoer{
		responses: map[string]string{
			"/value?user=0xabc": `[{"user":"0xabc","value":123.45}]`,
		},
	}
	client := NewClient(transport.NewClient(doer, BaseURL))

	v, err := client.Value(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	if v.String() != "123.45" {
		t.Errorf("expected 123.45, got %s", v)
	}
}

func TestRequestsRequireUser(t *testing.T) {
	client := NewClient(transport.NewClient(&staticDoer{}, BaseURL))
	if _, err := client.Trades(context.Background(), nil); err == nil {
		t.Errorf("nil request should fail")
	}
	if _, err := client.Positions(context.Background(), &PositionsRequest{}); err == nil {
		t.Errorf("missing user should fail")
	}
	if _, err := client.Value(context.Background(), ""); err == nil {
		t.Errorf("missing user should fail")
	}
}
