package engine

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"github.com/vmbbz/betmirror-sub005/pkg/clob/cloberrors"
	"github.com/vmbbz/betmirror-sub005/pkg/types"
)

// SyncPositions refreshes the balance snapshot and the position list.
// Unforced calls are throttled: a sync runs only when the cash balance has
// moved more than epsilon since the last sync (a fill the engine didn't
// cause) or the sync interval has elapsed. The new list replaces the old
// atomically; readers never see a partial merge.
func (e *Engine) SyncPositions(ctx context.Context, forced bool) error {
	e.mu.Lock()
	wallet := e.cfg.WalletAddress
	epsilon := e.cfg.BalanceEpsilon
	interval := e.cfg.SyncInterval
	e.mu.Unlock()

	balance, err := e.exchange.FetchBalance(ctx, wallet)
	if err != nil {
		return err
	}

	e.mu.Lock()
	delta := balance.Sub(e.lastBalance).Abs()
	elapsed := e.now().Sub(e.lastSyncAt)
	should := forced || delta.GreaterThan(epsilon) || elapsed > interval
	e.mu.Unlock()
	if !should {
		return nil
	}

	fresh, err := e.exchange.GetPositions(ctx, wallet)
	if err != nil {
		return err
	}

	merged, removed := e.mergePositions(fresh)

	e.mu.Lock()
	if e.stop != nil && !e.running {
		// Stopped while the fetch was in flight: discard the result.
		e.mu.Unlock()
		return nil
	}
	e.positions = merged
	e.lastBalance = balance
	e.lastSyncAt = e.now()

	positionsUSD := decimal.Zero
	for _, p := range merged {
		positionsUSD = positionsUSD.Add(p.CurrentValue)
	}
	e.snapshot = types.BalanceSnapshot{
		CashUSD:      balance,
		PositionsUSD: positionsUSD,
		TotalUSD:     balance.Add(positionsUSD),
		Timestamp:    e.lastSyncAt,
	}
	e.mu.Unlock()

	if e.scanner != nil {
		for _, p := range merged {
			e.scanner.SetInventory(p.TokenID, p.Shares)
		}
	}
	e.persistSync(ctx, merged, removed)
	e.bus.publishPositions(merged)
	return nil
}

// mergePositions reconciles the freshly fetched list with the previous one:
// fresh entries reset their missing counter, known positions absent from the
// exchange's list get one strike and are kept with last-known data, and two
// strikes confirms the position is gone.
func (e *Engine) mergePositions(fresh []types.Position) (merged, removed []types.Position) {
	e.mu.Lock()
	previous := append([]types.Position(nil), e.positions...)
	e.mu.Unlock()

	seen := make(map[string]struct{}, len(fresh))
	now := e.now()
	for _, p := range fresh {
		p.MissingSyncs = 0
		p.UpdatedAt = now
		if e.scanner != nil {
			p.ManagedByMM = e.scanner.HasActiveQuotes(p.TokenID)
		}
		seen[positionKey(p)] = struct{}{}
		merged = append(merged, p)
	}

	for _, p := range previous {
		if _, ok := seen[positionKey(p)]; ok {
			continue
		}
		p.MissingSyncs++
		if p.MissingSyncs >= 2 {
			logs.Infof("[engine] position %s/%s confirmed gone", p.MarketID, p.Outcome)
			removed = append(removed, p)
			continue
		}
		merged = append(merged, p)
	}
	return merged, removed
}

func positionKey(p types.Position) string {
	return p.MarketID + "|" + p.TokenID
}

func (e *Engine) persistSync(ctx context.Context, merged, removed []types.Position) {
	if e.store == nil {
		return
	}
	for _, p := range merged {
		if err := e.store.SavePosition(ctx, p); err != nil {
			logs.Warnf("[engine] position write failed for %s: %v", p.MarketID, err)
		}
	}
	for _, p := range removed {
		if err := e.store.RemovePosition(ctx, p.MarketID, p.TokenID); err != nil {
			logs.Warnf("[engine] position delete failed for %s: %v", p.MarketID, err)
		}
	}
}

// marketState resolves one market's lifecycle state through the metadata
// cache. Static metadata is cached for the long TTL, but an ACTIVE reading is
// trusted only for StateTTL: terminal states are stable (a closed or deleted
// market never reopens, so a not-found lookup is cached too), while an active
// market can stop accepting orders at any moment and must be rechecked from
// fresh exchange data before it is quoted on. Transient errors fall back to
// the cached state, or to resolved when nothing is cached, so the quote gate
// fails closed.
func (e *Engine) marketState(ctx context.Context, marketID string) types.MarketState {
	e.mu.Lock()
	entry, ok := e.metaCache[marketID]
	metaTTL := e.cfg.MetadataTTL
	stateTTL := e.cfg.StateTTL
	e.mu.Unlock()

	if ok && e.now().Sub(entry.fetchedAt) <= metaTTL {
		state := entry.market.State()
		if state != types.MarketActive || e.now().Sub(entry.checkedAt) <= stateTTL {
			return state
		}
	}

	market, err := e.markets.Market(ctx, marketID)
	if err != nil {
		if cloberrors.IsNotFound(cloberrors.Classify(err)) {
			entry = metaEntry{market: nil, fetchedAt: e.now(), checkedAt: e.now()}
			e.mu.Lock()
			e.metaCache[marketID] = entry
			e.mu.Unlock()
			return types.MarketResolved
		}
		logs.Warnf("[engine] market lookup failed for %s: %v", marketID, err)
		if ok {
			return entry.market.State()
		}
		return types.MarketResolved
	}

	e.mu.Lock()
	e.metaCache[marketID] = metaEntry{market: market, fetchedAt: e.now(), checkedAt: e.now()}
	e.mu.Unlock()
	return market.State()
}
