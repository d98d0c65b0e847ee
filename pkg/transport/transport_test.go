package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"testing"
)

type staticDoer struct {
	status    int
	responses map[string]string
	lastReq   *http.Request
}

func (d *staticDoer) Do(req *http.Request) (*http.Response, error) {
	d.lastReq = req
	key := req.URL.Path
	if req.URL.RawQuery != "" {
		key += "?" + req.URL.RawQuery
	}
	status := d.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(d.responses[key])),
		Header:     make(http.Header),
	}, nil
}

func TestGetDecodesJSON(t *testing.T) {
	doer := &staticDoer{responses: map[string]string{"/balance?user=0xabc": `{"balance":"42.5"}`}}
	client := NewClient(doer, "http://example")
	client.SetUserAgent("betmirror-test")

	var out struct {
		Balance string `json:"balance"`
	}
	q := url.Values{}
	q.Set("user", "0xabc")
	if err := client.Get(context.Background(), "/balance", q, &out); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if out.Balance != "42.5" {
		t.Errorf("expected 42.5, got %s", out.Balance)
	}
	if ua := doer.lastReq.Header.Get("User-Agent"); ua != "betmirror-test" {
		t.Errorf("user agent not set, got %q", ua)
	}
}

func TestPostSendsBodyAndHeaders(t *testing.T) {
	doer := &staticDoer{responses: map[string]string{"/order": `{"success":true}`}}
	client := NewClient(doer, "http://example")

	headers := http.Header{}
	headers.Set("POLY_ADDRESS", "0xabc")
	var out struct {
		Success bool `json:"success"`
	}
	err := client.PostWithHeaders(context.Background(), "/order", headers, map[string]string{"side": "BUY"}, &out)
	if err != nil {
		t.Fatalf("PostWithHeaders failed: %v", err)
	}
	if !out.Success {
		t.Errorf("expected success")
	}
	if doer.lastReq.Header.Get("POLY_ADDRESS") != "0xabc" {
		t.Errorf("auth header not forwarded")
	}
	if doer.lastReq.Header.Get("Content-Type") != "application/json" {
		t.Errorf("content type not set")
	}
}

func TestNon2xxBecomesAPIError(t *testing.T) {
	doer := &staticDoer{
		status:    http.StatusUnauthorized,
		responses: map[string]string{"/order": `{"error":"invalid signature","code":"INVALID_SIGNATURE"}`},
	}
	client := NewClient(doer, "http://example")

	err := client.Post(context.Background(), "/order", map[string]string{}, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != 401 || apiErr.Code != "INVALID_SIGNATURE" {
		t.Errorf("unexpected APIError: %+v", apiErr)
	}
}
