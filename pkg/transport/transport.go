// Package transport provides the shared JSON HTTP client used by every
// service client. It wraps a Doer (usually *http.Client) with a base URL,
// user agent, and typed API error decoding.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Doer executes a single HTTP request.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIError is a non-2xx response decoded from the exchange.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Client is a thin JSON client bound to one service base URL.
type Client struct {
	doer      Doer
	baseURL   string
	userAgent string
}

// NewClient creates a client for the given base URL. A nil doer falls back to
// http.DefaultClient.
func NewClient(doer Doer, baseURL string) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}
	return &Client{doer: doer, baseURL: strings.TrimRight(baseURL, "/")}
}

// SetUserAgent sets the User-Agent header sent with every request.
func (c *Client) SetUserAgent(ua string) {
	c.userAgent = ua
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get issues a GET and decodes the JSON response into out (out may be nil).
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, nil, out)
}

// GetWithHeaders issues a GET with extra headers (signed auth headers).
func (c *Client) GetWithHeaders(ctx context.Context, path string, query url.Values, headers http.Header, out any) error {
	return c.do(ctx, http.MethodGet, path, query, headers, nil, out)
}

// Post issues a POST with a JSON body and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body any, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, nil, body, out)
}

// PostWithHeaders issues a POST with extra headers and a JSON body.
func (c *Client) PostWithHeaders(ctx context.Context, path string, headers http.Header, body any, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, headers, body, out)
}

// DeleteWithHeaders issues a DELETE with extra headers and a JSON body.
func (c *Client) DeleteWithHeaders(ctx context.Context, path string, headers http.Header, body any, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, headers, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, headers http.Header, body any, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, apiErr)
		}
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
