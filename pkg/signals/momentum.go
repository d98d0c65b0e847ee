package signals

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// FomoSnipe is a detected momentum burst on one outcome token.
type FomoSnipe struct {
	MarketID   string
	TokenID    string
	Title      string
	Price      decimal.Decimal
	Change     decimal.Decimal
	DetectedAt time.Time
}

// MomentumConfig tunes the fomo-snipe detector.
type MomentumConfig struct {
	Lookback        time.Duration
	ChangeThreshold decimal.Decimal // absolute price move over the lookback
	MinPrice        decimal.Decimal // ignore moves outside this band, a token
	MaxPrice        decimal.Decimal // near 0 or 1 has no room left to run
	Cooldown        time.Duration
}

// DefaultMomentumConfig fires on a five-cent move inside a minute, at most
// once per token every five minutes.
func DefaultMomentumConfig() MomentumConfig {
	return MomentumConfig{
		Lookback:        time.Minute,
		ChangeThreshold: decimal.RequireFromString("0.05"),
		MinPrice:        decimal.RequireFromString("0.05"),
		MaxPrice:        decimal.RequireFromString("0.90"),
		Cooldown:        5 * time.Minute,
	}
}

type pricePoint struct {
	price decimal.Decimal
	at    time.Time
}

// MomentumDetector watches per-token price series for rapid rises.
type MomentumDetector struct {
	cfg MomentumConfig

	mu        sync.Mutex
	history   map[string][]pricePoint
	lastFired map[string]time.Time
	now       func() time.Time
}

// NewMomentumDetector builds an empty detector.
func NewMomentumDetector(cfg MomentumConfig) *MomentumDetector {
	if cfg.Lookback <= 0 {
		cfg.Lookback = time.Minute
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	return &MomentumDetector{
		cfg:       cfg,
		history:   make(map[string][]pricePoint),
		lastFired: make(map[string]time.Time),
		now:       time.Now,
	}
}

// Observe records one price sample and reports a snipe when the token has
// risen past the threshold within the lookback window. Repeated fires on the
// same token are suppressed for the cooldown.
func (d *MomentumDetector) Observe(marketID, tokenID, title string, price decimal.Decimal) *FomoSnipe {
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	series := append(d.history[tokenID], pricePoint{price: price, at: now})
	cutoff := now.Add(-d.cfg.Lookback)
	for len(series) > 0 && series[0].at.Before(cutoff) {
		series = series[1:]
	}
	d.history[tokenID] = series
	if len(series) < 2 {
		return nil
	}

	change := price.Sub(series[0].price)
	if change.LessThan(d.cfg.ChangeThreshold) {
		return nil
	}
	if price.LessThan(d.cfg.MinPrice) || price.GreaterThan(d.cfg.MaxPrice) {
		return nil
	}
	if fired, ok := d.lastFired[tokenID]; ok && now.Sub(fired) < d.cfg.Cooldown {
		return nil
	}
	d.lastFired[tokenID] = now

	return &FomoSnipe{
		MarketID:   marketID,
		TokenID:    tokenID,
		Title:      title,
		Price:      price,
		Change:     change,
		DetectedAt: now,
	}
}
