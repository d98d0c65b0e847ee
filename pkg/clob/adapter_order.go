package clob

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"github.com/vmbbz/betmirror-sub005/pkg/clob/cloberrors"
	"github.com/vmbbz/betmirror-sub005/pkg/clob/clobtypes"
	"github.com/vmbbz/betmirror-sub005/pkg/gamma"
	"github.com/vmbbz/betmirror-sub005/pkg/types"
)

// CreateOrder turns an intent into a concrete immediate-or-cancel order:
// fetch market metadata and the live book in parallel, derive tick and
// minimum size (book takes precedence), price against the best opposing
// quote, round toward the book, convert USD sizing to shares, and submit
// with the one-shot auth/allowance retry. Policy rejections come back as
// typed outcomes, never as errors.
func (a *Adapter) CreateOrder(ctx context.Context, intent types.OrderIntent) clobtypes.OrderResult {
	if !intent.Side.Valid() {
		logs.Errorf("[adapter] rejecting intent with side %q", intent.Side)
		return clobtypes.Failure(clobtypes.OutcomeFailed)
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()

	market, book, err := a.fetchMarketAndBook(ctx, intent.MarketID, intent.TokenID)
	if err != nil {
		logs.Warnf("[adapter] market=%s pre-trade lookup failed: %v", intent.MarketID, err)
		return clobtypes.Failure(clobtypes.OutcomeFailed)
	}

	tick, minOrder := a.resolveTickAndMin(market, book)

	price, ok := a.resolvePrice(intent, book, tick)
	if !ok {
		return clobtypes.Failure(clobtypes.OutcomeSkippedNoLiquidity)
	}

	shares := a.resolveShares(intent, price)
	if shares.LessThan(minOrder) {
		logs.Infof("[adapter] market=%s size %s below min %s, skipping",
			intent.MarketID, shares.String(), minOrder.String())
		return clobtypes.Failure(clobtypes.OutcomeSkippedMinSize)
	}

	return a.submitOrder(ctx, intent, price, shares, tick, clobtypes.OrderTypeFOK)
}

// PlaceQuote posts a resting limit order at the intent's explicit price,
// gridded to the market's live tick the same way CreateOrder prices are. The
// order stays on the book until cancelled, so the scanner owns its lifecycle.
func (a *Adapter) PlaceQuote(ctx context.Context, intent types.OrderIntent) (string, error) {
	if !intent.Side.Valid() {
		return "", fmt.Errorf("invalid side %q", intent.Side)
	}
	if intent.PriceLimit.Sign() <= 0 {
		return "", fmt.Errorf("quote requires an explicit price")
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()

	market, book, err := a.fetchMarketAndBook(ctx, intent.MarketID, intent.TokenID)
	if err != nil {
		return "", fmt.Errorf("quote pre-trade lookup: %w", err)
	}
	tick, minOrder := a.resolveTickAndMin(market, book)

	price := intent.PriceLimit.Div(tick).Floor().Mul(tick)
	if price.LessThan(priceFloor) {
		price = priceFloor
	}
	if price.GreaterThan(priceCeil) {
		price = priceCeil
	}

	shares := a.resolveShares(intent, price)
	if shares.LessThan(minOrder) {
		return "", fmt.Errorf("quote size %s below market minimum %s", shares, minOrder)
	}

	res := a.submitOrder(ctx, intent, price, shares, tick, clobtypes.OrderTypeGTC)
	if !res.Success {
		return "", fmt.Errorf("quote rejected: %s", res.Error)
	}
	return res.OrderID, nil
}

func (a *Adapter) fetchMarketAndBook(ctx context.Context, marketID, tokenID string) (*gamma.Market, *clobtypes.BookResponse, error) {
	var (
		wg        sync.WaitGroup
		market    *gamma.Market
		book      *clobtypes.BookResponse
		marketErr error
		bookErr   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		marketErr = a.limits.MarketReads.Submit(ctx, func() error {
			m, err := a.gamma.Market(ctx, marketID)
			if err != nil {
				return err
			}
			market = m
			return nil
		})
	}()
	go func() {
		defer wg.Done()
		bookErr = a.limits.MarketReads.Submit(ctx, func() error {
			b, err := a.clob.OrderBook(ctx, tokenID)
			if err != nil {
				return err
			}
			book = b
			return nil
		})
	}()
	wg.Wait()

	if marketErr != nil {
		return nil, nil, marketErr
	}
	if bookErr != nil {
		return nil, nil, bookErr
	}
	return market, book, nil
}

// resolveTickAndMin prefers the book's own tick/min fields and falls back to
// market metadata, then to exchange defaults.
func (a *Adapter) resolveTickAndMin(market *gamma.Market, book *clobtypes.BookResponse) (decimal.Decimal, decimal.Decimal) {
	tick := a.cfg.DefaultTickSize
	minOrder := a.cfg.DefaultMinOrder

	if market != nil {
		if v, err := decimal.NewFromString(market.MinTickSize); err == nil && v.Sign() > 0 {
			tick = v
		}
		if v, err := decimal.NewFromString(market.MinOrderSize); err == nil && v.Sign() > 0 {
			minOrder = v
		}
	}
	if book != nil {
		if v, err := decimal.NewFromString(book.TickSize); err == nil && v.Sign() > 0 {
			tick = v
		}
		if v, err := decimal.NewFromString(book.MinOrderSize); err == nil && v.Sign() > 0 {
			minOrder = v
		}
	}
	return tick, minOrder
}

// resolvePrice picks the explicit limit or the best opposing quote, clamps
// into [0.01, 0.99], and rounds toward the book on the tick grid.
func (a *Adapter) resolvePrice(intent types.OrderIntent, book *clobtypes.BookResponse, tick decimal.Decimal) (decimal.Decimal, bool) {
	price := intent.PriceLimit
	if price.Sign() <= 0 {
		var ok bool
		if intent.Side == types.SideBuy {
			price, ok = book.BestAsk()
		} else {
			price, ok = book.BestBid()
		}
		if !ok {
			return decimal.Zero, false
		}
	}

	if price.LessThan(priceFloor) {
		price = priceFloor
	}
	if price.GreaterThan(priceCeil) {
		price = priceCeil
	}

	rounded := price.Div(tick).Floor().Mul(tick)
	if rounded.LessThan(tick) {
		rounded = tick
	}
	return rounded, true
}

// resolveShares converts USD sizing to whole shares (floored, never rounded
// up); explicit share counts pass through truncated to the lot scale so
// exits stay exact.
func (a *Adapter) resolveShares(intent types.OrderIntent, price decimal.Decimal) decimal.Decimal {
	if intent.SizeShares.Sign() > 0 {
		return intent.SizeShares.Truncate(lotSizeScale)
	}
	if price.Sign() <= 0 {
		return decimal.Zero
	}
	return intent.SizeUSD.Div(price).Floor()
}

func (a *Adapter) submitOrder(ctx context.Context, intent types.OrderIntent, price, shares, tick decimal.Decimal, orderType clobtypes.OrderType) clobtypes.OrderResult {
	var resp *clobtypes.OrderResponse

	submit := func() error {
		client, err := a.authedClient(ctx)
		if err != nil {
			return err
		}
		// Rebuilt on every attempt so retries carry a fresh salt/signature.
		builder := NewOrderBuilder(a.signer).
			TokenID(intent.TokenID).
			Side(intent.Side).
			PriceDec(price).
			SizeDec(shares).
			TickSizeDec(tick).
			FeeRateBps(a.cfg.FeeRateBps).
			SignatureType(a.cfg.SignatureType)
		if a.cfg.Funder != nil {
			builder = builder.Funder(*a.cfg.Funder)
		}
		order, err := builder.Build()
		if err != nil {
			return err
		}

		return a.limits.OrderWrites.Submit(ctx, func() error {
			r, err := client.PostOrder(ctx, &clobtypes.CreateOrderRequest{
				Order:     *order,
				Owner:     a.signer.Address().Hex(),
				OrderType: orderType,
			})
			if err != nil {
				return err
			}
			resp = r
			return nil
		})
	}

	if err := a.retryPolicy().Do(ctx, submit); err != nil {
		switch {
		case cloberrors.IsAuth(err):
			logs.Errorf("[adapter] market=%s auth retry exhausted: %v", intent.MarketID, err)
			return clobtypes.Failure(clobtypes.OutcomeFailed)
		case cloberrors.IsAllowance(err) || cloberrors.IsInsufficientFunds(err):
			return clobtypes.Failure(clobtypes.OutcomeInsufficientFunds)
		default:
			logs.Errorf("[adapter] market=%s order submit failed: %v", intent.MarketID, err)
			return clobtypes.Failure(clobtypes.OutcomeFailed)
		}
	}

	if outcome := classifyResponse(resp); outcome != "" {
		logs.Infof("[adapter] market=%s order rejected: %s (%s)", intent.MarketID, outcome, resp.ErrorMsg)
		return clobtypes.Failure(outcome)
	}

	return a.fillResult(intent.Side, resp, price, shares)
}

// fillResult normalizes the exchange's fill amounts. Making/taking amounts
// are reported from the taker's perspective; fall back to the requested
// numbers when the response omits them.
func (a *Adapter) fillResult(side types.Side, resp *clobtypes.OrderResponse, price, shares decimal.Decimal) clobtypes.OrderResult {
	filledShares := shares
	filledPrice := price

	usd, usdErr := decimal.NewFromString(resp.MakingAmount)
	got, gotErr := decimal.NewFromString(resp.TakingAmount)
	if side == types.SideSell {
		usd, got = got, usd
		usdErr, gotErr = gotErr, usdErr
	}
	if gotErr == nil && got.Sign() > 0 {
		filledShares = got
		if usdErr == nil && usd.Sign() > 0 {
			filledPrice = usd.Div(got).Truncate(4)
		}
	}

	result := clobtypes.OrderResult{
		Success:      true,
		OrderID:      resp.OrderID,
		SharesFilled: filledShares,
		PriceFilled:  filledPrice,
	}
	if len(resp.TransactionHashes) > 0 {
		result.TxHash = resp.TransactionHashes[0]
	}
	return result
}
