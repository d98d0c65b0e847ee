package mm

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vmbbz/betmirror-sub005/pkg/clob/clobtypes"
	"github.com/vmbbz/betmirror-sub005/pkg/types"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeBooks struct {
	books map[string]*clobtypes.BookResponse
}

func (f *fakeBooks) GetOrderBook(ctx context.Context, tokenID string) (*clobtypes.BookResponse, error) {
	return f.books[tokenID], nil
}

type fakePlacer struct {
	placed    []types.OrderIntent
	cancelled []string
	cancelOK  bool
	nextID    int
}

func (f *fakePlacer) PlaceQuote(ctx context.Context, intent types.OrderIntent) (string, error) {
	f.placed = append(f.placed, intent)
	f.nextID++
	return "order-" + string(rune('0'+f.nextID)), nil
}

func (f *fakePlacer) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	f.cancelled = append(f.cancelled, orderID)
	return f.cancelOK, nil
}

func book(bid, bidSize, ask, askSize string) *clobtypes.BookResponse {
	return &clobtypes.BookResponse{
		Bids: []clobtypes.PriceLevel{{Price: bid, Size: bidSize}},
		Asks: []clobtypes.PriceLevel{{Price: ask, Size: askSize}},
	}
}

func TestAnalyzeBook(t *testing.T) {
	obs := time.Unix(1000, 0)
	opp, err := analyzeBook("0xmarket", "q", "123", book("0.48", "300", "0.52", "100"), decimal.NewFromInt(1000), obs)
	if err != nil {
		t.Fatalf("analyzeBook: %v", err)
	}
	if !opp.Mid.Equal(dec("0.5")) {
		t.Fatalf("mid = %s, want 0.5", opp.Mid)
	}
	if !opp.SpreadBps.Equal(dec("800")) {
		t.Fatalf("spread bps = %s, want 800", opp.SpreadBps)
	}
	// (300 - 100) / 400
	if !opp.Imbalance.Equal(dec("0.5")) {
		t.Fatalf("imbalance = %s, want 0.5", opp.Imbalance)
	}
	if !opp.RewardEligible {
		t.Fatal("800 bps inside a 1000 bps band should be eligible")
	}
}

func TestAnalyzeBookRejectsCrossedOrEmpty(t *testing.T) {
	if _, err := analyzeBook("m", "q", "t", book("0.52", "1", "0.48", "1"), decimal.NewFromInt(1000), time.Time{}); err == nil {
		t.Fatal("expected an error for a crossed book")
	}
	if _, err := analyzeBook("m", "q", "t", &clobtypes.BookResponse{}, decimal.NewFromInt(1000), time.Time{}); err == nil {
		t.Fatal("expected an error for an empty book")
	}
}

func TestAnalyzeBookRewardBand(t *testing.T) {
	opp, err := analyzeBook("m", "q", "t", book("0.40", "1", "0.60", "1"), decimal.NewFromInt(300), time.Time{})
	if err != nil {
		t.Fatalf("analyzeBook: %v", err)
	}
	if opp.RewardEligible {
		t.Fatalf("%s bps outside a 300 bps band should not be eligible", opp.SpreadBps)
	}
}

func TestSkewSaturates(t *testing.T) {
	s := NewScanner(&fakeBooks{}, &fakePlacer{}, DefaultConfig())

	s.SetInventory("123", decimal.NewFromInt(50))
	if got := s.skew("123"); !got.Equal(dec("0.5")) {
		t.Fatalf("skew = %s, want 0.5", got)
	}
	s.SetInventory("123", decimal.NewFromInt(500))
	if got := s.skew("123"); !got.Equal(dec("1")) {
		t.Fatalf("skew = %s, want saturated 1", got)
	}
	s.SetInventory("123", decimal.NewFromInt(-500))
	if got := s.skew("123"); !got.Equal(dec("-1")) {
		t.Fatalf("skew = %s, want saturated -1", got)
	}
}

func TestExecuteQuotesPostsTwoSided(t *testing.T) {
	placer := &fakePlacer{cancelOK: true}
	s := NewScanner(&fakeBooks{}, placer, DefaultConfig())

	opp := Opportunity{
		MarketID: "0xmarket",
		TokenID:  "123",
		Mid:      dec("0.50"),
		Spread:   dec("0.04"),
	}
	if err := s.ExecuteQuotes(context.Background(), opp); err != nil {
		t.Fatalf("ExecuteQuotes: %v", err)
	}
	if len(placer.placed) != 2 {
		t.Fatalf("placed = %d, want 2", len(placer.placed))
	}
	if !placer.placed[0].PriceLimit.Equal(dec("0.48")) || placer.placed[0].Side != types.SideBuy {
		t.Fatalf("bid = %+v, want BUY at 0.48", placer.placed[0])
	}
	if !placer.placed[1].PriceLimit.Equal(dec("0.52")) || placer.placed[1].Side != types.SideSell {
		t.Fatalf("ask = %+v, want SELL at 0.52", placer.placed[1])
	}
	if !s.HasActiveQuotes("123") {
		t.Fatal("expected active quotes after posting")
	}
}

func TestExecuteQuotesSkewShiftsPrices(t *testing.T) {
	placer := &fakePlacer{cancelOK: true}
	s := NewScanner(&fakeBooks{}, placer, DefaultConfig())

	// Fully long: both quotes shift down by the skew gain.
	opp := Opportunity{
		MarketID: "0xmarket",
		TokenID:  "123",
		Mid:      dec("0.50"),
		Spread:   dec("0.04"),
		Skew:     dec("1"),
	}
	if err := s.ExecuteQuotes(context.Background(), opp); err != nil {
		t.Fatalf("ExecuteQuotes: %v", err)
	}
	if !placer.placed[0].PriceLimit.Equal(dec("0.47")) {
		t.Fatalf("bid = %s, want 0.47", placer.placed[0].PriceLimit)
	}
	if !placer.placed[1].PriceLimit.Equal(dec("0.51")) {
		t.Fatalf("ask = %s, want 0.51", placer.placed[1].PriceLimit)
	}
}

func TestExecuteQuotesKeepsFreshQuotesAtPrice(t *testing.T) {
	placer := &fakePlacer{cancelOK: true}
	s := NewScanner(&fakeBooks{}, placer, DefaultConfig())
	now := time.Unix(10000, 0)
	s.now = func() time.Time { return now }

	opp := Opportunity{MarketID: "0xmarket", TokenID: "123", Mid: dec("0.50"), Spread: dec("0.04")}
	if err := s.ExecuteQuotes(context.Background(), opp); err != nil {
		t.Fatalf("first ExecuteQuotes: %v", err)
	}
	placer.placed = nil

	// Same prices moments later: nothing cancelled, nothing re-posted.
	now = now.Add(5 * time.Second)
	if err := s.ExecuteQuotes(context.Background(), opp); err != nil {
		t.Fatalf("second ExecuteQuotes: %v", err)
	}
	if len(placer.cancelled) != 0 || len(placer.placed) != 0 {
		t.Fatalf("cancelled %d, placed %d; want 0, 0", len(placer.cancelled), len(placer.placed))
	}
}

func TestExecuteQuotesSupersedesOnReprice(t *testing.T) {
	placer := &fakePlacer{cancelOK: true}
	s := NewScanner(&fakeBooks{}, placer, DefaultConfig())
	now := time.Unix(10000, 0)
	s.now = func() time.Time { return now }

	if err := s.ExecuteQuotes(context.Background(), Opportunity{MarketID: "m", TokenID: "123", Mid: dec("0.50"), Spread: dec("0.04")}); err != nil {
		t.Fatalf("first ExecuteQuotes: %v", err)
	}
	placer.placed = nil

	// The mid moved: both quotes are cancelled and re-posted.
	now = now.Add(5 * time.Second)
	if err := s.ExecuteQuotes(context.Background(), Opportunity{MarketID: "m", TokenID: "123", Mid: dec("0.55"), Spread: dec("0.04")}); err != nil {
		t.Fatalf("second ExecuteQuotes: %v", err)
	}
	if len(placer.cancelled) != 2 {
		t.Fatalf("cancelled = %d, want 2", len(placer.cancelled))
	}
	if len(placer.placed) != 2 {
		t.Fatalf("placed = %d, want 2", len(placer.placed))
	}
}

func TestExecuteQuotesStaleCancelledPastTTL(t *testing.T) {
	placer := &fakePlacer{cancelOK: true}
	s := NewScanner(&fakeBooks{}, placer, DefaultConfig())
	now := time.Unix(10000, 0)
	s.now = func() time.Time { return now }

	opp := Opportunity{MarketID: "m", TokenID: "123", Mid: dec("0.50"), Spread: dec("0.04")}
	if err := s.ExecuteQuotes(context.Background(), opp); err != nil {
		t.Fatalf("first ExecuteQuotes: %v", err)
	}

	// Same prices but past the TTL: quotes are stale and replaced.
	now = now.Add(time.Minute)
	placer.placed = nil
	if err := s.ExecuteQuotes(context.Background(), opp); err != nil {
		t.Fatalf("second ExecuteQuotes: %v", err)
	}
	if len(placer.cancelled) != 2 || len(placer.placed) != 2 {
		t.Fatalf("cancelled %d, placed %d; want 2, 2", len(placer.cancelled), len(placer.placed))
	}
}

func TestScanOnceBuildsOpportunities(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Markets = []TrackedMarket{{MarketID: "0xmarket", TokenID: "123", Question: "q"}}
	books := &fakeBooks{books: map[string]*clobtypes.BookResponse{
		"123": book("0.48", "100", "0.52", "100"),
	}}
	s := NewScanner(books, &fakePlacer{}, cfg)
	s.SetInventory("123", decimal.NewFromInt(50))

	s.scanOnce(context.Background(), make(chan struct{}))
	opps := s.GetOpportunities()
	if len(opps) != 1 {
		t.Fatalf("opportunities = %d, want 1", len(opps))
	}
	if !opps[0].Skew.Equal(dec("0.5")) {
		t.Fatalf("skew = %s, want 0.5", opps[0].Skew)
	}
}
