package gamma

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/vmbbz/betmirror-sub005/pkg/transport"
)

type staticDoer struct {
	responses map[string]string
	status    map[string]int
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
	status := http.StatusOK
	if s, ok := d.status[key]; ok {
		status = s
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(payload)),
		Header:     make(http.Header),
	}, nil
}

func TestMarket(t *testing.T) {
	doer := &staticDoer{
		responses: map[string]string{
			"/markets/m1": `{"id":"m1","question":"Will it rain?","active":true,"acceptingOrders":true,"tokens":[{"token_id":"t1","outcome":"Yes"}]}`,
		},
	}
	client := NewClient(transport.NewClient(doer, BaseURL))

	m, err := client.Market(context.Background(), "m1")
	if err != nil {
		t.Fatalf("Market failed: %v", err)
	}
	if m.ID != "m1" || !m.Active || len(m.Tokens) != 1 {
		t.Errorf("unexpected market: %+v", m)
	}
}

func TestMarketNotFound(t *testing.T) {
	doer := &staticDoer{
		responses: map[string]string{"/markets/gone": `{"error":"not found"}`},
		status:    map[string]int{"/markets/gone": http.StatusNotFound},
	}
	client := NewClient(transport.NewClient(doer, BaseURL))

	_, err := client.Market(context.Background(), "gone")
	var apiErr *transport.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 404 {
		t.Errorf("expected 404 APIError, got %v", err)
	}
}

func TestMarketsQuery(t *testing.T) {
	doer := &staticDoer{
		responses: map[string]string{
			"/markets?active=true&limit=10": `[{"id":"m1"},{"id":"m2"}]`,
		},
	}
	client := NewClient(transport.NewClient(doer, BaseURL))

	active := true
	ms, err := client.Markets(context.Background(), &MarketsRequest{Active: &active, Limit: 10})
	if err != nil || len(ms) != 2 {
		t.Errorf("Markets failed: %v (%d)", err, len(ms))
	}
}

func TestMarketRequiresID(t *testing.T) {
	client := NewClient(transport.NewClient(&staticDoer{}, BaseURL))
	if _, err := client.Market(context.Background(), ""); err == nil {
		t.Errorf("empty id should fail")
	}
}
