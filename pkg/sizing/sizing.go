// Package sizing computes proportional copy-trade sizes. It is a pure
// function of the two wallets' balances and the configured risk limits, so
// every decision is reproducible from its inputs.
package sizing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Reasons reported with each sizing decision. The floor-boost reason carries
// the minimum order value, e.g. "floor_boost_min_1".
const (
	ReasonProportional = "proportional"
	ReasonInsufficient = "insufficient_for_min_order"
	ReasonCappedAtMax  = "capped_at_max"
	ReasonCappedAtBal  = "capped_at_balance"

	floorBoostPrefix = "floor_boost_min_"
)

// MinOrderUSD is the smallest order value the exchange accepts.
var MinOrderUSD = decimal.NewFromInt(1)

// increment is the exchange's minimum currency step.
const incrementScale = 2

// Input carries everything one sizing decision depends on.
type Input struct {
	FollowerBalance decimal.Decimal
	SourceBalance   decimal.Decimal
	SourceTradeUSD  decimal.Decimal
	Multiplier      decimal.Decimal
	MaxTradeUSD     decimal.Decimal // zero means no configured ceiling
}

// Result is the computed size plus how it was reached.
type Result struct {
	TargetUSD decimal.Decimal
	Ratio     decimal.Decimal
	Reason    string
}

// Compute derives the follower's trade size from the source trade. The ratio
// compares the follower's bankroll to the source's pre-trade bankroll, the
// raw proportional size is then floored, capped and truncated so the result
// never exceeds what the follower can actually spend.
func Compute(in Input) Result {
	follower := clampZero(in.FollowerBalance)
	source := clampZero(in.SourceBalance)
	tradeUSD := clampZero(in.SourceTradeUSD)
	multiplier := in.Multiplier
	if multiplier.Sign() <= 0 {
		multiplier = decimal.NewFromInt(1)
	}

	denom := source.Add(tradeUSD)
	if denom.LessThan(decimal.NewFromInt(1)) {
		denom = decimal.NewFromInt(1)
	}
	ratio := follower.Div(denom)

	raw := tradeUSD.Mul(ratio).Mul(multiplier)
	reason := ReasonProportional

	// Dust floor: bump affordable dust to the minimum, otherwise sit out.
	if raw.LessThan(MinOrderUSD) {
		if follower.LessThan(MinOrderUSD) {
			return Result{Ratio: ratio, Reason: ReasonInsufficient}
		}
		raw = MinOrderUSD
		reason = floorBoostReason()
	}

	if in.MaxTradeUSD.Sign() > 0 && raw.GreaterThan(in.MaxTradeUSD) {
		raw = in.MaxTradeUSD
		reason = ReasonCappedAtMax
	}
	if raw.GreaterThan(follower) {
		raw = follower
		reason = ReasonCappedAtBal
	}

	// Truncate to the currency increment, never round up, then re-check the
	// floor: truncation can only shrink, so a cap result may fall to dust.
	raw = raw.Truncate(incrementScale)
	if raw.LessThan(MinOrderUSD) {
		if follower.LessThan(MinOrderUSD) {
			return Result{Ratio: ratio, Reason: ReasonInsufficient}
		}
		raw = MinOrderUSD
		reason = floorBoostReason()
	}

	return Result{TargetUSD: raw, Ratio: ratio, Reason: reason}
}

func floorBoostReason() string {
	return fmt.Sprintf("%s%s", floorBoostPrefix, MinOrderUSD.String())
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.Sign() < 0 {
		return decimal.Zero
	}
	return d
}
