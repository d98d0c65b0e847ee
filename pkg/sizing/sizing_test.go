package sizing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeProportional(t *testing.T) {
	res := Compute(Input{
		FollowerBalance: dec("50"),
		SourceBalance:   dec("1000"),
		SourceTradeUSD:  dec("100"),
		Multiplier:      dec("1"),
	})
	if res.Reason != ReasonProportional {
		t.Fatalf("reason = %s, want %s", res.Reason, ReasonProportional)
	}
	// ratio 50/1100, raw 4.5454..., truncated down to the cent.
	if !res.TargetUSD.Equal(dec("4.54")) {
		t.Fatalf("target = %s, want 4.54", res.TargetUSD)
	}
}

func TestComputeFloorBoost(t *testing.T) {
	res := Compute(Input{
		FollowerBalance: dec("20"),
		SourceBalance:   dec("1000"),
		SourceTradeUSD:  dec("1"),
		Multiplier:      dec("1"),
	})
	if res.Reason != "floor_boost_min_1" {
		t.Fatalf("reason = %s, want floor_boost_min_1", res.Reason)
	}
	if !res.TargetUSD.Equal(dec("1")) {
		t.Fatalf("target = %s, want 1", res.TargetUSD)
	}
}

func TestComputeInsufficientForMinOrder(t *testing.T) {
	res := Compute(Input{
		FollowerBalance: dec("0.5"),
		SourceBalance:   dec("1000"),
		SourceTradeUSD:  dec("100"),
		Multiplier:      dec("1"),
	})
	if res.Reason != ReasonInsufficient {
		t.Fatalf("reason = %s, want %s", res.Reason, ReasonInsufficient)
	}
	if res.TargetUSD.Sign() != 0 {
		t.Fatalf("target = %s, want 0", res.TargetUSD)
	}
}

func TestComputeCappedAtMax(t *testing.T) {
	res := Compute(Input{
		FollowerBalance: dec("1000"),
		SourceBalance:   dec("100"),
		SourceTradeUSD:  dec("50"),
		Multiplier:      dec("1"),
		MaxTradeUSD:     dec("10"),
	})
	if res.Reason != ReasonCappedAtMax {
		t.Fatalf("reason = %s, want %s", res.Reason, ReasonCappedAtMax)
	}
	if !res.TargetUSD.Equal(dec("10")) {
		t.Fatalf("target = %s, want 10", res.TargetUSD)
	}
}

func TestComputeCappedAtBalance(t *testing.T) {
	res := Compute(Input{
		FollowerBalance: dec("5"),
		SourceBalance:   dec("1"),
		SourceTradeUSD:  dec("100"),
		Multiplier:      dec("1"),
	})
	if res.Reason != ReasonCappedAtBal {
		t.Fatalf("reason = %s, want %s", res.Reason, ReasonCappedAtBal)
	}
	if !res.TargetUSD.Equal(dec("5")) {
		t.Fatalf("target = %s, want the full balance 5", res.TargetUSD)
	}
}

func TestComputeMonotoneInFollowerBalance(t *testing.T) {
	prev := decimal.Zero
	for _, bal := range []string{"0.5", "1", "5", "20", "50", "200", "1000", "5000"} {
		res := Compute(Input{
			FollowerBalance: dec(bal),
			SourceBalance:   dec("1000"),
			SourceTradeUSD:  dec("100"),
			Multiplier:      dec("1"),
		})
		if res.TargetUSD.LessThan(prev) {
			t.Fatalf("target decreased: balance %s gave %s after %s", bal, res.TargetUSD, prev)
		}
		prev = res.TargetUSD
	}
}

func TestComputeBounded(t *testing.T) {
	cases := []Input{
		{FollowerBalance: dec("3"), SourceBalance: dec("10"), SourceTradeUSD: dec("100"), Multiplier: dec("5")},
		{FollowerBalance: dec("1000"), SourceBalance: dec("0"), SourceTradeUSD: dec("7"), Multiplier: dec("2"), MaxTradeUSD: dec("25")},
		{FollowerBalance: dec("42.42"), SourceBalance: dec("999"), SourceTradeUSD: dec("13.37"), Multiplier: dec("1")},
		{FollowerBalance: dec("0"), SourceBalance: dec("1000"), SourceTradeUSD: dec("100"), Multiplier: dec("1")},
	}
	for i, in := range cases {
		res := Compute(in)
		if res.TargetUSD.Sign() < 0 {
			t.Fatalf("case %d: negative target %s", i, res.TargetUSD)
		}
		if res.TargetUSD.GreaterThan(in.FollowerBalance) {
			t.Fatalf("case %d: target %s exceeds balance %s", i, res.TargetUSD, in.FollowerBalance)
		}
		if in.MaxTradeUSD.Sign() > 0 && res.TargetUSD.GreaterThan(in.MaxTradeUSD) {
			t.Fatalf("case %d: target %s exceeds max %s", i, res.TargetUSD, in.MaxTradeUSD)
		}
		if !res.TargetUSD.Equal(res.TargetUSD.Truncate(2)) {
			t.Fatalf("case %d: target %s is not a cent multiple", i, res.TargetUSD)
		}
	}
}

func TestComputeNegativeInputsClamped(t *testing.T) {
	res := Compute(Input{
		FollowerBalance: dec("-10"),
		SourceBalance:   dec("1000"),
		SourceTradeUSD:  dec("100"),
		Multiplier:      dec("1"),
	})
	if res.TargetUSD.Sign() != 0 || res.Reason != ReasonInsufficient {
		t.Fatalf("got %+v, want zero/insufficient", res)
	}
}
