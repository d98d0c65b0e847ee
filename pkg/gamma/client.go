package gamma

import (
	"context"
)

// Client defines the metadata surface the engine consumes.
// It is primarily a read-only API used for discovery and lifecycle checks.
type Client interface {
	// Market retrieves a single market by its id. A not-found error means
	// the market no longer exists on the exchange; callers treat that as
	// resolved rather than transient.
	Market(ctx context.Context, id string) (*Market, error)
	// Markets retrieves a filtered list of markets.
	Markets(ctx context.Context, req *MarketsRequest) ([]Market, error)
}
