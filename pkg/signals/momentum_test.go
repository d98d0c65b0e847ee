package signals

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testDetector() (*MomentumDetector, *time.Time) {
	d := NewMomentumDetector(DefaultMomentumConfig())
	now := time.Unix(10000, 0)
	d.now = func() time.Time { return now }
	return d, &now
}

func TestMomentumFiresOnRapidRise(t *testing.T) {
	d, now := testDetector()

	if snipe := d.Observe("0xmarket", "123", "Will it happen?", dec("0.50")); snipe != nil {
		t.Fatal("fired on the first sample")
	}
	*now = now.Add(20 * time.Second)
	snipe := d.Observe("0xmarket", "123", "Will it happen?", dec("0.56"))
	if snipe == nil {
		t.Fatal("expected a snipe on a six-cent move")
	}
	if !snipe.Change.Equal(dec("0.06")) {
		t.Fatalf("change = %s, want 0.06", snipe.Change)
	}
	if snipe.TokenID != "123" {
		t.Fatalf("token = %s, want 123", snipe.TokenID)
	}
}

func TestMomentumIgnoresSlowDrift(t *testing.T) {
	d, now := testDetector()

	d.Observe("0xmarket", "123", "", dec("0.50"))
	// The early sample ages out of the lookback before the move completes.
	*now = now.Add(2 * time.Minute)
	d.Observe("0xmarket", "123", "", dec("0.53"))
	*now = now.Add(20 * time.Second)
	if snipe := d.Observe("0xmarket", "123", "", dec("0.56")); snipe != nil {
		t.Fatal("fired on drift outside the lookback")
	}
}

func TestMomentumCooldownSuppressesRepeats(t *testing.T) {
	d, now := testDetector()

	d.Observe("0xmarket", "123", "", dec("0.50"))
	*now = now.Add(10 * time.Second)
	if d.Observe("0xmarket", "123", "", dec("0.56")) == nil {
		t.Fatal("expected the first fire")
	}
	*now = now.Add(10 * time.Second)
	if d.Observe("0xmarket", "123", "", dec("0.62")) != nil {
		t.Fatal("fired again inside the cooldown")
	}
}

func TestMomentumIgnoresExtremePrices(t *testing.T) {
	d, now := testDetector()

	d.Observe("0xmarket", "123", "", dec("0.88"))
	*now = now.Add(10 * time.Second)
	if d.Observe("0xmarket", "123", "", dec("0.95")) != nil {
		t.Fatal("fired above the price ceiling")
	}
}
