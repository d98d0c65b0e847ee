package gamma

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/vmbbz/betmirror-sub005/pkg/transport"
)

// BaseURL is the production metadata service endpoint.
const BaseURL = "https://gamma-api.polymarket.com"

type clientImpl struct {
	httpClient *transport.Client
}

// NewClient creates a metadata client over the given transport.
func NewClient(httpClient *transport.Client) Client {
	return &clientImpl{httpClient: httpClient}
}

func (c *clientImpl) Market(ctx context.Context, id string) (*Market, error) {
	if id == "" {
		return nil, fmt.Errorf("market id is required")
	}
	var out Market
	if err := c.httpClient.Get(ctx, "/markets/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *clientImpl) Markets(ctx context.Context, req *MarketsRequest) ([]Market, error) {
	q := url.Values{}
	if req != nil {
		if req.Active != nil {
			q.Set("active", strconv.FormatBool(*req.Active))
		}
		if req.Closed != nil {
			q.Set("closed", strconv.FormatBool(*req.Closed))
		}
		if req.Limit > 0 {
			q.Set("limit", strconv.Itoa(req.Limit))
		}
		if req.Offset > 0 {
			q.Set("offset", strconv.Itoa(req.Offset))
		}
	}
	var out []Market
	if err := c.httpClient.Get(ctx, "/markets", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}
