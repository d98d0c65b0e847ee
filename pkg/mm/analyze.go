package mm

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vmbbz/betmirror-sub005/pkg/clob/clobtypes"
)

// Opportunity is one market's current two-sided quoting candidate.
type Opportunity struct {
	MarketID       string
	Question       string
	TokenID        string
	Bid            decimal.Decimal
	Ask            decimal.Decimal
	Mid            decimal.Decimal
	Spread         decimal.Decimal
	SpreadBps      decimal.Decimal
	BidDepth       decimal.Decimal
	AskDepth       decimal.Decimal
	Imbalance      decimal.Decimal
	Score          decimal.Decimal
	RewardEligible bool

	// Skew is the inventory bias in [-1, 1]; positive means net long the
	// primary outcome, so quotes shift to favor selling it back.
	Skew decimal.Decimal

	ObservedAt time.Time
}

// Fresh reports whether the observation is recent enough to act on.
func (o Opportunity) Fresh(now time.Time, maxAge time.Duration) bool {
	return now.Sub(o.ObservedAt) <= maxAge
}

// analyzeBook reduces a live book to top-of-book metrics: mid, spread in
// basis points, and depth imbalance in [-1, 1].
func analyzeBook(marketID, question, tokenID string, book *clobtypes.BookResponse, rewardMaxSpreadBps decimal.Decimal, observedAt time.Time) (Opportunity, error) {
	if book == nil || len(book.Bids) == 0 || len(book.Asks) == 0 {
		return Opportunity{}, fmt.Errorf("empty book")
	}

	bestBid, bidDepth, err := topOfBook(book.Bids)
	if err != nil {
		return Opportunity{}, err
	}
	bestAsk, askDepth, err := topOfBook(book.Asks)
	if err != nil {
		return Opportunity{}, err
	}
	if bestAsk.LessThanOrEqual(bestBid) {
		return Opportunity{}, fmt.Errorf("crossed book")
	}

	mid := bestBid.Add(bestAsk).Div(decimal.NewFromInt(2))
	spread := bestAsk.Sub(bestBid)
	spreadBps := decimal.Zero
	if !mid.IsZero() {
		spreadBps = spread.Div(mid).Mul(decimal.NewFromInt(10000))
	}

	totalDepth := bidDepth.Add(askDepth)
	imbalance := decimal.Zero
	if totalDepth.GreaterThan(decimal.Zero) {
		imbalance = bidDepth.Sub(askDepth).Div(totalDepth)
	}

	// Wide spreads earn more per fill but fall out of the reward band.
	eligible := spreadBps.GreaterThan(decimal.Zero) && spreadBps.LessThanOrEqual(rewardMaxSpreadBps)
	score := spreadBps.Mul(decimal.NewFromInt(1).Sub(imbalance.Abs()))

	return Opportunity{
		MarketID:       marketID,
		Question:       question,
		TokenID:        tokenID,
		Bid:            bestBid,
		Ask:            bestAsk,
		Mid:            mid,
		Spread:         spread,
		SpreadBps:      spreadBps,
		BidDepth:       bidDepth,
		AskDepth:       askDepth,
		Imbalance:      imbalance,
		Score:          score,
		RewardEligible: eligible,
		ObservedAt:     observedAt,
	}, nil
}

func topOfBook(levels []clobtypes.PriceLevel) (price decimal.Decimal, depth decimal.Decimal, err error) {
	price, err = decimal.NewFromString(levels[0].Price)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("bad price: %w", err)
	}
	depth, err = decimal.NewFromString(levels[0].Size)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("bad size: %w", err)
	}
	return price, depth, nil
}
