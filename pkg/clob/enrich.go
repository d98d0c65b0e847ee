package clob

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"github.com/vmbbz/betmirror-sub005/pkg/clob/cloberrors"
	"github.com/vmbbz/betmirror-sub005/pkg/data"
	"github.com/vmbbz/betmirror-sub005/pkg/types"
)

// GetPositions lists a wallet's open positions, dust-filtered and enriched
// with live market state and midpoint pricing. Enrichment failures degrade
// to the exchange-reported values rather than failing the sync.
func (a *Adapter) GetPositions(ctx context.Context, address string) ([]types.Position, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()

	threshold, _ := a.cfg.MinShareThreshold.Float64()
	var raw []data.PositionData
	err := a.limits.TradeReads.Submit(ctx, func() error {
		out, err := a.data.Positions(ctx, &data.PositionsRequest{
			User:          address,
			SizeThreshold: threshold,
		})
		if err != nil {
			return err
		}
		raw = out
		return nil
	})
	if err != nil {
		return nil, err
	}

	positions := make([]types.Position, len(raw))
	var wg sync.WaitGroup
	for i, p := range raw {
		wg.Add(1)
		go func(i int, p data.PositionData) {
			defer wg.Done()
			positions[i] = a.enrichPosition(ctx, p)
		}(i, p)
	}
	wg.Wait()
	return positions, nil
}

// enrichPosition layers live metadata and pricing over one raw position.
func (a *Adapter) enrichPosition(ctx context.Context, p data.PositionData) types.Position {
	pos := types.Position{
		MarketID:     p.ConditionID,
		TokenID:      p.TokenID,
		Outcome:      p.Outcome,
		Title:        p.Title,
		Slug:         p.Slug,
		Icon:         p.Icon,
		EntryPrice:   decimal.NewFromFloat(p.AvgPrice),
		Shares:       decimal.NewFromFloat(p.Size),
		InvestedUSD:  decimal.NewFromFloat(p.InitialValue),
		CurrentPrice: decimal.NewFromFloat(p.CurPrice),
		CurrentValue: decimal.NewFromFloat(p.CurrentValue),
		State:        types.MarketActive,
	}
	pos.PnL = pos.CurrentValue.Sub(pos.InvestedUSD)

	market, err := a.gamma.Market(ctx, p.ConditionID)
	err = cloberrors.Classify(err)
	switch {
	case cloberrors.IsNotFound(err):
		pos.State = types.MarketResolved
	case err != nil:
		logs.Warnf("[adapter] market lookup failed for %s, keeping last known state: %v", p.ConditionID, err)
	default:
		pos.State = market.State()
	}

	if mid, err := a.livePrice(ctx, p.TokenID); err == nil {
		pos.CurrentPrice = mid
		pos.CurrentValue = pos.Shares.Mul(mid)
		pos.PnL = pos.CurrentValue.Sub(pos.InvestedUSD)
	} else {
		logs.Warnf("[adapter] midpoint unavailable for %s, keeping exchange snapshot: %v", p.TokenID, err)
	}
	return pos
}

func (a *Adapter) livePrice(ctx context.Context, tokenID string) (decimal.Decimal, error) {
	var mid decimal.Decimal
	err := a.limits.MarketReads.Submit(ctx, func() error {
		resp, err := a.clob.Midpoint(ctx, tokenID)
		if err != nil {
			return err
		}
		mid, err = decimal.NewFromString(resp.Mid)
		return err
	})
	return mid, err
}
