// Package gamma provides the client for the exchange's metadata and
// discovery service: market titles, slugs, lifecycle flags, and outcome
// tokens. It is a read-only API.
package gamma

import (
	"github.com/vmbbz/betmirror-sub005/pkg/types"
)

// Market is the metadata for one prediction market.
type Market struct {
	ID              string        `json:"id"`
	Question        string        `json:"question"`
	Slug            string        `json:"slug"`
	Icon            string        `json:"icon"`
	Active          bool          `json:"active"`
	Closed          bool          `json:"closed"`
	Archived        bool          `json:"archived"`
	AcceptingOrders bool          `json:"acceptingOrders"`
	MinTickSize     string        `json:"orderPriceMinTickSize"`
	MinOrderSize    string        `json:"orderMinSize"`
	Tokens          []MarketToken `json:"tokens"`
}

// State derives the lifecycle state from the metadata flags. The mapping is
// pure: recomputing from identical data always yields the same state. A
// market that is neither closed nor archived but has stopped accepting
// orders (or gone inactive) is inferred resolved.
func (m *Market) State() types.MarketState {
	switch {
	case m == nil:
		return types.MarketResolved
	case m.Closed:
		return types.MarketClosed
	case m.Archived:
		return types.MarketArchived
	case !m.Active || !m.AcceptingOrders:
		return types.MarketResolved
	default:
		return types.MarketActive
	}
}

// MarketToken is one tradable outcome of a market.
type MarketToken struct {
	TokenID string `json:"token_id"`
	Outcome string `json:"outcome"`
	Price   string `json:"price"`
	Winner  bool   `json:"winner"`
}

// MarketsRequest filters the Markets listing.
type MarketsRequest struct {
	Active *bool
	Closed *bool
	Limit  int
	Offset int
}
