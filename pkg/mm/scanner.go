// Package mm is the liquidity scanner: it maintains per-market quoting
// opportunities from live books, tracks inventory skew, and manages the
// resting quote lifecycle (posted, filled, stale-cancelled, superseded).
package mm

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"github.com/vmbbz/betmirror-sub005/pkg/clob/clobtypes"
	"github.com/vmbbz/betmirror-sub005/pkg/types"
)

// BookSource provides live order books.
type BookSource interface {
	GetOrderBook(ctx context.Context, tokenID string) (*clobtypes.BookResponse, error)
}

// QuotePlacer posts and cancels resting quotes. The engine backs this with
// the execution service.
type QuotePlacer interface {
	PlaceQuote(ctx context.Context, intent types.OrderIntent) (orderID string, err error)
	CancelOrder(ctx context.Context, orderID string) (bool, error)
}

// TrackedMarket is one market the scanner quotes on.
type TrackedMarket struct {
	MarketID string
	TokenID  string
	Question string
}

// Config tunes scanning and quoting.
type Config struct {
	Markets            []TrackedMarket
	ScanInterval       time.Duration
	QuoteTTL           time.Duration
	RewardMaxSpreadBps decimal.Decimal
	QuoteSizeUSD       decimal.Decimal
	SkewGain           decimal.Decimal // price shift per unit of skew
	MaxInventoryShares decimal.Decimal // shares at which skew saturates
}

// DefaultConfig quotes $10 a side and rescans every five seconds.
func DefaultConfig() Config {
	return Config{
		ScanInterval:       5 * time.Second,
		QuoteTTL:           30 * time.Second,
		RewardMaxSpreadBps: decimal.NewFromInt(300),
		QuoteSizeUSD:       decimal.NewFromInt(10),
		SkewGain:           decimal.RequireFromString("0.01"),
		MaxInventoryShares: decimal.NewFromInt(100),
	}
}

// Scanner owns the opportunity map and the resting quotes.
type Scanner struct {
	books  BookSource
	placer QuotePlacer
	cfg    Config

	mu            sync.Mutex
	opportunities map[string]Opportunity   // by token id
	quotes        map[string][]types.Quote // active quotes by token id
	inventory     map[string]decimal.Decimal
	running       bool
	stop          chan struct{}

	now func() time.Time
}

// NewScanner builds a stopped scanner.
func NewScanner(books BookSource, placer QuotePlacer, cfg Config) *Scanner {
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = 5 * time.Second
	}
	if cfg.QuoteTTL <= 0 {
		cfg.QuoteTTL = 30 * time.Second
	}
	if cfg.MaxInventoryShares.Sign() <= 0 {
		cfg.MaxInventoryShares = decimal.NewFromInt(100)
	}
	return &Scanner{
		books:         books,
		placer:        placer,
		cfg:           cfg,
		opportunities: make(map[string]Opportunity),
		quotes:        make(map[string][]types.Quote),
		inventory:     make(map[string]decimal.Decimal),
		now:           time.Now,
	}
}

// Start launches the scan loop; a running scanner ignores the call.
func (s *Scanner) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	stop := s.stop
	s.mu.Unlock()

	go s.loop(ctx, stop)
	logs.Info("[mm] scanner started")
}

// Stop prevents the next scan; an in-flight scan's results are discarded.
func (s *Scanner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stop)
	logs.Info("[mm] scanner stopped")
}

func (s *Scanner) loop(ctx context.Context, stop chan struct{}) {
	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.scanOnce(ctx, stop)
		}
	}
}

func (s *Scanner) scanOnce(ctx context.Context, stop chan struct{}) {
	for _, market := range s.cfg.Markets {
		book, err := s.books.GetOrderBook(ctx, market.TokenID)
		if err != nil {
			logs.Warnf("[mm] book fetch failed for %s: %v", market.TokenID, err)
			continue
		}
		opp, err := analyzeBook(market.MarketID, market.Question, market.TokenID, book, s.cfg.RewardMaxSpreadBps, s.now())
		if err != nil {
			continue
		}
		select {
		case <-stop:
			return
		default:
		}
		opp.Skew = s.skew(market.TokenID)
		s.mu.Lock()
		s.opportunities[market.TokenID] = opp
		s.mu.Unlock()
	}
}

// SetInventory records the net position for one token, from which skew is
// derived on the next scan.
func (s *Scanner) SetInventory(tokenID string, shares decimal.Decimal) {
	s.mu.Lock()
	s.inventory[tokenID] = shares
	s.mu.Unlock()
}

// skew maps net inventory to [-1, 1], saturating at MaxInventoryShares.
func (s *Scanner) skew(tokenID string) decimal.Decimal {
	s.mu.Lock()
	net := s.inventory[tokenID]
	s.mu.Unlock()

	skew := net.Div(s.cfg.MaxInventoryShares)
	one := decimal.NewFromInt(1)
	if skew.GreaterThan(one) {
		return one
	}
	if skew.LessThan(one.Neg()) {
		return one.Neg()
	}
	return skew
}

// GetOpportunities returns the current opportunity set, best score first.
func (s *Scanner) GetOpportunities() []Opportunity {
	s.mu.Lock()
	out := make([]Opportunity, 0, len(s.opportunities))
	for _, opp := range s.opportunities {
		out = append(out, opp)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Score.GreaterThan(out[j].Score)
	})
	return out
}

// HasActiveQuotes reports whether any quote is resting on the token.
func (s *Scanner) HasActiveQuotes(tokenID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.quotes[tokenID]) > 0
}

// ActiveQuotes returns a copy of the resting quotes for one token.
func (s *Scanner) ActiveQuotes(tokenID string) []types.Quote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Quote(nil), s.quotes[tokenID]...)
}

// ExecuteQuotes refreshes the two-sided quote for an opportunity: stale or
// mispriced quotes are cancelled (a cancel miss means the quote filled),
// then a skew-biased bid and ask are posted.
func (s *Scanner) ExecuteQuotes(ctx context.Context, opp Opportunity) error {
	bid, ask := s.quotePrices(opp)

	kept, err := s.retire(ctx, opp.TokenID, bid, ask)
	if err != nil {
		return err
	}
	resting := make(map[types.Side]bool, len(kept))
	for _, q := range kept {
		resting[q.Side] = true
	}

	posted := kept
	for _, q := range []struct {
		side  types.Side
		price decimal.Decimal
	}{
		{types.SideBuy, bid},
		{types.SideSell, ask},
	} {
		if resting[q.side] {
			continue
		}
		orderID, err := s.placer.PlaceQuote(ctx, types.OrderIntent{
			MarketID:   opp.MarketID,
			TokenID:    opp.TokenID,
			Side:       q.side,
			SizeUSD:    s.cfg.QuoteSizeUSD,
			PriceLimit: q.price,
		})
		if err != nil {
			logs.Warnf("[mm] %s quote on %s failed: %v", q.side, opp.TokenID, err)
			continue
		}
		posted = append(posted, types.Quote{
			MarketID: opp.MarketID,
			TokenID:  opp.TokenID,
			Side:     q.side,
			Price:    q.price,
			Size:     s.cfg.QuoteSizeUSD,
			Skew:     opp.Skew,
			OrderID:  orderID,
			Status:   types.QuotePosted,
			PostedAt: s.now(),
		})
	}

	s.mu.Lock()
	s.quotes[opp.TokenID] = posted
	s.mu.Unlock()
	return nil
}

// quotePrices biases both quotes against the inventory: a long book shifts
// bid and ask down, making further buys less likely and sells more likely.
func (s *Scanner) quotePrices(opp Opportunity) (decimal.Decimal, decimal.Decimal) {
	half := opp.Spread.Div(decimal.NewFromInt(2))
	bias := s.cfg.SkewGain.Mul(opp.Skew)
	bid := opp.Mid.Sub(half).Sub(bias)
	ask := opp.Mid.Add(half).Sub(bias)
	return clampPrice(bid), clampPrice(ask)
}

// retire cancels quotes that are past the TTL or no longer at the target
// price, returning the ones left resting. A failed cancel means the exchange
// no longer has the order, which is a fill.
func (s *Scanner) retire(ctx context.Context, tokenID string, bid, ask decimal.Decimal) ([]types.Quote, error) {
	s.mu.Lock()
	current := s.quotes[tokenID]
	s.mu.Unlock()

	now := s.now()
	var kept []types.Quote
	for _, q := range current {
		target := bid
		if q.Side == types.SideSell {
			target = ask
		}
		status := types.QuoteSuperseded
		if now.Sub(q.PostedAt) > s.cfg.QuoteTTL {
			status = types.QuoteStaleCancelled
		} else if q.Price.Equal(target) {
			// Fresh and still at the right price: leave it resting.
			kept = append(kept, q)
			continue
		}

		ok, err := s.placer.CancelOrder(ctx, q.OrderID)
		if err != nil {
			return kept, err
		}
		if !ok {
			status = types.QuoteFilled
			logs.Infof("[mm] quote %s on %s filled at %s", q.OrderID, tokenID, q.Price)
		}
		logs.Infof("[mm] quote %s retired: %s", q.OrderID, status)
	}
	return kept, nil
}

var (
	quoteFloor = decimal.RequireFromString("0.01")
	quoteCeil  = decimal.RequireFromString("0.99")
)

func clampPrice(p decimal.Decimal) decimal.Decimal {
	if p.LessThan(quoteFloor) {
		return quoteFloor
	}
	if p.GreaterThan(quoteCeil) {
		return quoteCeil
	}
	return p
}
