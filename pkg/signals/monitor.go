// Package signals watches tracked wallets for new trade activity and emits
// normalized trade signals, via polling and an optional live websocket feed.
// It also hosts the momentum detector behind the fomo-snipe strategy.
package signals

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"github.com/vmbbz/betmirror-sub005/pkg/data"
	"github.com/vmbbz/betmirror-sub005/pkg/types"
)

// MonitorConfig tunes the polling monitor.
type MonitorConfig struct {
	PollInterval time.Duration
	TradeLimit   int
	MinTradeUSD  decimal.Decimal
}

// DefaultMonitorConfig polls every three seconds, which keeps a handful of
// tracked wallets well inside the activity API's quota.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		PollInterval: 3 * time.Second,
		TradeLimit:   20,
		MinTradeUSD:  decimal.NewFromInt(1),
	}
}

// Monitor polls tracked wallets and emits each trade exactly once.
type Monitor struct {
	activity data.Client
	cfg      MonitorConfig

	mu      sync.Mutex
	wallets map[string]struct{}
	seen    map[string]time.Time
	running bool
	stop    chan struct{}

	out     chan types.TradeSignal
	started time.Time
	now     func() time.Time
}

// NewMonitor builds a monitor over the wallet-activity client. The initial
// wallet list may be empty and updated later via SetWallets.
func NewMonitor(activity data.Client, wallets []string, cfg MonitorConfig) *Monitor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Second
	}
	if cfg.TradeLimit <= 0 {
		cfg.TradeLimit = 20
	}
	m := &Monitor{
		activity: activity,
		cfg:      cfg,
		wallets:  make(map[string]struct{}),
		seen:     make(map[string]time.Time),
		out:      make(chan types.TradeSignal, 128),
		now:      time.Now,
	}
	for _, w := range wallets {
		m.wallets[w] = struct{}{}
	}
	return m
}

// Signals is the stream of deduplicated trade signals.
func (m *Monitor) Signals() <-chan types.TradeSignal {
	return m.out
}

// SetWallets swaps the tracked wallet set without a restart.
func (m *Monitor) SetWallets(wallets []string) {
	next := make(map[string]struct{}, len(wallets))
	for _, w := range wallets {
		next[w] = struct{}{}
	}
	m.mu.Lock()
	m.wallets = next
	m.mu.Unlock()
	logs.Infof("[signals] tracking %d wallets", len(next))
}

// Start launches the polling loop. Calling Start on a running monitor is a
// no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stop = make(chan struct{})
	m.started = m.now()
	stop := m.stop
	m.mu.Unlock()

	go m.loop(ctx, stop)
	logs.Info("[signals] monitor started")
}

// Stop prevents the next poll from firing. An in-flight poll completes but
// its results are discarded.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	close(m.stop)
	logs.Info("[signals] monitor stopped")
}

func (m *Monitor) loop(ctx context.Context, stop chan struct{}) {
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.pollOnce(ctx, stop)
		}
	}
}

func (m *Monitor) pollOnce(ctx context.Context, stop chan struct{}) {
	m.mu.Lock()
	wallets := make([]string, 0, len(m.wallets))
	for w := range m.wallets {
		wallets = append(wallets, w)
	}
	m.mu.Unlock()

	for _, wallet := range wallets {
		trades, err := m.activity.Trades(ctx, &data.TradesRequest{User: wallet, Limit: m.cfg.TradeLimit})
		if err != nil {
			logs.Warnf("[signals] trade poll failed for %s: %v", wallet, err)
			continue
		}
		select {
		case <-stop:
			// Stopped mid-poll: discard the fetched results.
			return
		default:
		}
		for _, trade := range trades {
			m.Observe(trade)
		}
	}
	m.pruneSeen()
}

// Observe feeds one raw trade into the dedupe-and-emit path. The websocket
// feed shares this entry point with the poller, so a trade arriving on both
// is still emitted once.
func (m *Monitor) Observe(trade data.Trade) {
	sig, ok := m.normalize(trade)
	if !ok {
		return
	}

	m.mu.Lock()
	key := sig.ID
	if _, dup := m.seen[key]; dup {
		m.mu.Unlock()
		return
	}
	m.seen[key] = m.now()
	m.mu.Unlock()

	select {
	case m.out <- sig:
	default:
		logs.Warnf("[signals] dropping signal %s, consumer is behind", sig.ID)
	}
}

func (m *Monitor) normalize(trade data.Trade) (types.TradeSignal, bool) {
	side := types.Side(trade.Side)
	if !side.Valid() {
		return types.TradeSignal{}, false
	}
	at := time.Unix(trade.Timestamp, 0)
	if at.Before(m.started) {
		// Backfill from before the monitor started is history, not a signal.
		return types.TradeSignal{}, false
	}
	usd := trade.USDSize()
	if usd.LessThan(m.cfg.MinTradeUSD) {
		return types.TradeSignal{}, false
	}
	return types.TradeSignal{
		ID:        trade.TransactionHash + "|" + trade.TokenID + "|" + trade.Side,
		Trader:    trade.ProxyWallet,
		MarketID:  trade.ConditionID,
		TokenID:   trade.TokenID,
		Outcome:   trade.Outcome,
		Title:     trade.Title,
		Side:      side,
		SizeUSD:   usd,
		Shares:    decimal.NewFromFloat(trade.Size),
		Price:     decimal.NewFromFloat(trade.Price),
		Timestamp: at,
		Source:    "copy",
	}, true
}

// pruneSeen drops dedupe entries older than an hour so the set stays small.
func (m *Monitor) pruneSeen() {
	cutoff := m.now().Add(-time.Hour)
	m.mu.Lock()
	for key, at := range m.seen {
		if at.Before(cutoff) {
			delete(m.seen, key)
		}
	}
	m.mu.Unlock()
}
