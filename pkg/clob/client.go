// Package clob implements the exchange adapter: the low-level order book
// client plus the policy layer that turns engine intents into bounded,
// retried, typed-outcome exchange calls.
package clob

import (
	"context"
	"net/url"
	"strconv"

	"github.com/vmbbz/betmirror-sub005/pkg/auth"
	"github.com/vmbbz/betmirror-sub005/pkg/clob/clobtypes"
	"github.com/vmbbz/betmirror-sub005/pkg/transport"
)

// BaseURL is the production CLOB endpoint.
const BaseURL = "https://clob.polymarket.com"

// Client is the low-level CLOB REST surface. All methods return classified
// errors (see cloberrors); policy decisions live in Adapter.
type Client interface {
	OrderBook(ctx context.Context, tokenID string) (*clobtypes.BookResponse, error)
	Midpoint(ctx context.Context, tokenID string) (*clobtypes.MidpointResponse, error)
	Balance(ctx context.Context, address string) (*clobtypes.BalanceResponse, error)
	PostOrder(ctx context.Context, req *clobtypes.CreateOrderRequest) (*clobtypes.OrderResponse, error)
	CancelOrder(ctx context.Context, orderID string) (*clobtypes.CancelResponse, error)
	DeriveAPICreds(ctx context.Context) (*auth.APIKey, error)
	WithAuth(signer auth.Signer, apiKey *auth.APIKey) Client
}

type clientImpl struct {
	httpClient *transport.Client
	signer     auth.Signer
	apiKey     *auth.APIKey
}

// NewClient creates a CLOB client over the given transport.
func NewClient(httpClient *transport.Client) Client {
	return &clientImpl{httpClient: httpClient}
}

// WithAuth returns a copy of the client carrying signing credentials. The
// original is left untouched.
func (c *clientImpl) WithAuth(signer auth.Signer, apiKey *auth.APIKey) Client {
	next := *c
	next.signer = signer
	next.apiKey = apiKey
	return &next
}

func (c *clientImpl) OrderBook(ctx context.Context, tokenID string) (*clobtypes.BookResponse, error) {
	q := url.Values{}
	q.Set("token_id", tokenID)
	var out clobtypes.BookResponse
	if err := c.httpClient.Get(ctx, "/book", q, &out); err != nil {
		return nil, classify(err)
	}
	return &out, nil
}

func (c *clientImpl) Midpoint(ctx context.Context, tokenID string) (*clobtypes.MidpointResponse, error) {
	q := url.Values{}
	q.Set("token_id", tokenID)
	var out clobtypes.MidpointResponse
	if err := c.httpClient.Get(ctx, "/midpoint", q, &out); err != nil {
		return nil, classify(err)
	}
	return &out, nil
}

func (c *clientImpl) Balance(ctx context.Context, address string) (*clobtypes.BalanceResponse, error) {
	q := url.Values{}
	q.Set("signature_type", strconv.Itoa(int(auth.SignatureEOA)))
	q.Set("asset_type", "COLLATERAL")
	if address != "" {
		q.Set("address", address)
	}
	headers, err := c.l2Headers("GET", "/balance-allowance", nil)
	if err != nil {
		return nil, err
	}
	var out clobtypes.BalanceResponse
	if err := c.httpClient.GetWithHeaders(ctx, "/balance-allowance", q, headers, &out); err != nil {
		return nil, classify(err)
	}
	return &out, nil
}

func (c *clientImpl) PostOrder(ctx context.Context, req *clobtypes.CreateOrderRequest) (*clobtypes.OrderResponse, error) {
	headers, err := c.l2Headers("POST", "/order", nil)
	if err != nil {
		return nil, err
	}
	var out clobtypes.OrderResponse
	if err := c.httpClient.PostWithHeaders(ctx, "/order", headers, req, &out); err != nil {
		return nil, classify(err)
	}
	return &out, nil
}

func (c *clientImpl) CancelOrder(ctx context.Context, orderID string) (*clobtypes.CancelResponse, error) {
	headers, err := c.l2Headers("DELETE", "/order", nil)
	if err != nil {
		return nil, err
	}
	body := map[string]string{"orderID": orderID}
	var out clobtypes.CancelResponse
	if err := c.httpClient.DeleteWithHeaders(ctx, "/order", headers, body, &out); err != nil {
		return nil, classify(err)
	}
	return &out, nil
}

// DeriveAPICreds runs the key-derivation handshake: the EOA signs an
// attestation and the exchange returns the L2 credential triple.
func (c *clientImpl) DeriveAPICreds(ctx context.Context) (*auth.APIKey, error) {
	headers, err := auth.L1Headers(c.signer, 0)
	if err != nil {
		return nil, err
	}
	var out auth.APIKey
	if err := c.httpClient.GetWithHeaders(ctx, "/auth/derive-api-key", nil, headers, &out); err != nil {
		return nil, classify(err)
	}
	return &out, nil
}

func (c *clientImpl) l2Headers(method, path string, body []byte) (map[string][]string, error) {
	return auth.L2Headers(c.signer, c.apiKey, method, path, body)
}
