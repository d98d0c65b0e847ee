// Package engine is the position and fund orchestrator: a per-session
// scheduler owning the heartbeat loop, throttled position/balance sync, the
// market state machine and the wiring between signal monitor, executor and
// liquidity scanner. Everything it needs is injected; there is no process
// level state.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"github.com/vmbbz/betmirror-sub005/pkg/clob/clobtypes"
	"github.com/vmbbz/betmirror-sub005/pkg/executor"
	"github.com/vmbbz/betmirror-sub005/pkg/gamma"
	"github.com/vmbbz/betmirror-sub005/pkg/mm"
	"github.com/vmbbz/betmirror-sub005/pkg/signals"
	"github.com/vmbbz/betmirror-sub005/pkg/types"
)

// Exchange is the adapter surface the engine syncs and trades through.
type Exchange interface {
	FetchBalance(ctx context.Context, address string) (decimal.Decimal, error)
	GetPositions(ctx context.Context, address string) ([]types.Position, error)
	CreateOrder(ctx context.Context, intent types.OrderIntent) clobtypes.OrderResult
	CancelOrder(ctx context.Context, orderID string) (bool, error)
}

// MarketInfo resolves market metadata; lookups are cached with a TTL.
type MarketInfo interface {
	Market(ctx context.Context, id string) (*gamma.Market, error)
}

// Executor runs sized copy trades and exact exits.
type Executor interface {
	ExecuteSignal(ctx context.Context, sig types.TradeSignal, followerBalance decimal.Decimal) (*executor.Execution, error)
	ExecuteExit(ctx context.Context, pos types.Position, shares decimal.Decimal) (*executor.Execution, error)
}

// Scanner is the liquidity scanner surface the heartbeat consumes.
type Scanner interface {
	Start(ctx context.Context)
	Stop()
	GetOpportunities() []mm.Opportunity
	HasActiveQuotes(tokenID string) bool
	ExecuteQuotes(ctx context.Context, opp mm.Opportunity) error
	SetInventory(tokenID string, shares decimal.Decimal)
}

// SignalSource emits normalized trade signals for tracked wallets.
type SignalSource interface {
	Start(ctx context.Context)
	Stop()
	Signals() <-chan types.TradeSignal
	SetWallets(wallets []string)
}

// Store persists positions and trade logs. Nil disables persistence.
type Store interface {
	SavePosition(ctx context.Context, pos types.Position) error
	RemovePosition(ctx context.Context, marketID, tokenID string) error
	SaveTrade(ctx context.Context, ev TradeEvent) error
}

// Config is the engine's runtime configuration.
type Config struct {
	WalletAddress     string
	TrackedWallets    []string
	HeartbeatInterval time.Duration
	SyncInterval      time.Duration
	BalanceEpsilon    decimal.Decimal
	MetadataTTL       time.Duration
	// StateTTL bounds how long an ACTIVE lifecycle reading is trusted. Static
	// metadata keeps the long TTL; whether a market still accepts orders is
	// rechecked at heartbeat cadence so quotes never target a closed market.
	StateTTL          time.Duration
	MaxOpportunityAge time.Duration

	CopyTradingEnabled  bool
	MarketMakingEnabled bool
}

// DefaultConfig beats every two seconds and fully syncs at most every five
// minutes unless the balance moves.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: 2 * time.Second,
		SyncInterval:      5 * time.Minute,
		BalanceEpsilon:    decimal.RequireFromString("0.01"),
		MetadataTTL:       24 * time.Hour,
		StateTTL:          2 * time.Second,
		MaxOpportunityAge: 15 * time.Second,
	}
}

type metaEntry struct {
	market    *gamma.Market // nil records a not-found lookup
	fetchedAt time.Time
	checkedAt time.Time // last time the lifecycle flags came from the exchange
}

// Engine is one user session's orchestrator.
type Engine struct {
	exchange Exchange
	markets  MarketInfo
	executor Executor
	scanner  Scanner
	source   SignalSource
	store    Store
	bus      *Bus

	mu         sync.Mutex
	cfg        Config
	running    bool
	stop       chan struct{}
	sourceStop chan struct{} // closes the signal consumer; nil when not consuming
	positions  []types.Position
	snapshot   types.BalanceSnapshot

	lastSyncAt  time.Time
	lastBalance decimal.Decimal
	metaCache   map[string]metaEntry
	momentum    *signals.MomentumDetector

	wins   int
	losses int

	now func() time.Time
}

// New wires an engine from its collaborators. Scanner, source and store may
// be nil when the corresponding module is disabled.
func New(exchange Exchange, markets MarketInfo, exec Executor, scanner Scanner, source SignalSource, store Store, bus *Bus, cfg Config) *Engine {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 2 * time.Second
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = 5 * time.Minute
	}
	if cfg.BalanceEpsilon.Sign() <= 0 {
		cfg.BalanceEpsilon = decimal.RequireFromString("0.01")
	}
	if cfg.MetadataTTL <= 0 {
		cfg.MetadataTTL = 24 * time.Hour
	}
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = cfg.HeartbeatInterval
	}
	if cfg.MaxOpportunityAge <= 0 {
		cfg.MaxOpportunityAge = 15 * time.Second
	}
	if bus == nil {
		bus = NewBus(0)
	}
	return &Engine{
		exchange:  exchange,
		markets:   markets,
		executor:  exec,
		scanner:   scanner,
		source:    source,
		store:     store,
		bus:       bus,
		cfg:       cfg,
		metaCache: make(map[string]metaEntry),
		momentum:  signals.NewMomentumDetector(signals.DefaultMomentumConfig()),
		now:       time.Now,
	}
}

// Bus exposes the engine's event streams.
func (e *Engine) Bus() *Bus { return e.bus }

// Snapshot returns the latest balance snapshot.
func (e *Engine) Snapshot() types.BalanceSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot
}

// Positions returns a copy of the latest synced position list.
func (e *Engine) Positions() []types.Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]types.Position(nil), e.positions...)
}

// Start launches the heartbeat and the enabled strategy modules, after one
// forced sync so the first decisions see fresh balances.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = true
	e.stop = make(chan struct{})
	stop := e.stop
	cfg := e.cfg
	e.mu.Unlock()

	if err := e.SyncPositions(ctx, true); err != nil {
		logs.Warnf("[engine] initial sync failed: %v", err)
	}

	if cfg.CopyTradingEnabled && e.source != nil {
		e.source.SetWallets(cfg.TrackedWallets)
		e.source.Start(ctx)
		e.startConsumer(ctx)
	}
	if cfg.MarketMakingEnabled && e.scanner != nil {
		e.scanner.Start(ctx)
	}

	go e.heartbeat(ctx, stop)
	e.bus.publishLog(LogEvent{Level: "info", Message: "engine started", At: e.now()})
	logs.Info("[engine] started")
	return nil
}

// Stop prevents the next heartbeat from firing and stops the strategy
// modules. In-flight exchange calls complete but their results are
// discarded.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stop)
	if e.sourceStop != nil {
		close(e.sourceStop)
		e.sourceStop = nil
	}
	e.mu.Unlock()

	if e.source != nil {
		e.source.Stop()
	}
	if e.scanner != nil {
		e.scanner.Stop()
	}
	logs.Info("[engine] stopped")
}

// UpdateConfig applies a new configuration incrementally: toggling a module
// starts or stops only that module, and wallet changes propagate to the
// running monitor without a restart.
func (e *Engine) UpdateConfig(ctx context.Context, next Config) {
	e.mu.Lock()
	prev := e.cfg
	next.HeartbeatInterval = prev.HeartbeatInterval
	e.cfg = next
	running := e.running
	e.mu.Unlock()

	if !running {
		return
	}

	if e.source != nil {
		switch {
		case next.CopyTradingEnabled && !prev.CopyTradingEnabled:
			e.source.SetWallets(next.TrackedWallets)
			e.source.Start(ctx)
			e.startConsumer(ctx)
		case !next.CopyTradingEnabled && prev.CopyTradingEnabled:
			e.source.Stop()
			e.stopConsumer()
		case next.CopyTradingEnabled:
			e.source.SetWallets(next.TrackedWallets)
		}
	}
	if e.scanner != nil {
		switch {
		case next.MarketMakingEnabled && !prev.MarketMakingEnabled:
			e.scanner.Start(ctx)
		case !next.MarketMakingEnabled && prev.MarketMakingEnabled:
			e.scanner.Stop()
		}
	}
	logs.Info("[engine] configuration updated")
}

func (e *Engine) heartbeat(ctx context.Context, stop chan struct{}) {
	e.mu.Lock()
	interval := e.cfg.HeartbeatInterval
	e.mu.Unlock()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick(ctx, stop)
		}
	}
}

// tick runs one heartbeat: refresh market-making quotes, run the throttled
// sync, publish stats. Each step fails independently.
func (e *Engine) tick(ctx context.Context, stop chan struct{}) {
	e.refreshQuotes(ctx)

	if err := e.SyncPositions(ctx, false); err != nil {
		logs.Warnf("[engine] sync failed: %v", err)
	}

	select {
	case <-stop:
		return
	default:
	}
	e.publishStats()
}

// refreshQuotes takes the scanner's best fresh opportunity and reposts its
// quotes when the market is still accepting orders and inside the reward
// band.
func (e *Engine) refreshQuotes(ctx context.Context) {
	e.mu.Lock()
	enabled := e.cfg.MarketMakingEnabled
	maxAge := e.cfg.MaxOpportunityAge
	e.mu.Unlock()
	if !enabled || e.scanner == nil {
		return
	}

	opps := e.scanner.GetOpportunities()
	if len(opps) == 0 {
		return
	}
	e.bus.publishArb(opps)

	for _, opp := range opps {
		if snipe := e.momentum.Observe(opp.MarketID, opp.TokenID, opp.Question, opp.Mid); snipe != nil {
			logs.Infof("[engine] momentum burst on %s: %s in the last window",
				opp.TokenID, snipe.Change.StringFixed(3))
			e.bus.publishFomo(*snipe)
		}
	}

	top := opps[0]
	if !top.Fresh(e.now(), maxAge) || !top.RewardEligible {
		return
	}
	if e.marketState(ctx, top.MarketID) != types.MarketActive {
		return
	}
	if err := e.scanner.ExecuteQuotes(ctx, top); err != nil {
		logs.Warnf("[engine] quote refresh failed for %s: %v", top.MarketID, err)
	}
}

// startConsumer launches the signal consumer once; a second call while one
// is running is a no-op, so repeated enable toggles never stack consumers.
func (e *Engine) startConsumer(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sourceStop != nil {
		return
	}
	e.sourceStop = make(chan struct{})
	go e.consumeSignals(ctx, e.sourceStop)
}

func (e *Engine) stopConsumer() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sourceStop != nil {
		close(e.sourceStop)
		e.sourceStop = nil
	}
}

func (e *Engine) consumeSignals(ctx context.Context, stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case sig := <-e.source.Signals():
			e.handleSignal(ctx, stop, sig)
		}
	}
}

func (e *Engine) handleSignal(ctx context.Context, stop chan struct{}, sig types.TradeSignal) {
	e.mu.Lock()
	cash := e.snapshot.CashUSD
	e.mu.Unlock()

	exec, err := e.executor.ExecuteSignal(ctx, sig, cash)
	if err != nil {
		logs.Warnf("[engine] signal %s not executed: %v", sig.ID, err)
		return
	}
	select {
	case <-stop:
		// Stopped while the order was in flight: drop the result.
		return
	default:
	}

	ev := TradeEvent{
		Signal:    sig,
		SizedUSD:  exec.SizedUSD,
		Reason:    exec.Reason,
		Success:   exec.Result.Success,
		OrderID:   exec.Result.OrderID,
		ProfitUSD: exec.ProfitUSD,
		At:        e.now(),
	}
	e.bus.publishTrade(ev)
	e.saveTrade(ctx, ev)

	if exec.Result.Success {
		// A fill changes the balance; the next heartbeat's epsilon check
		// would catch it, but sync now so sizing sees fresh numbers.
		if err := e.SyncPositions(ctx, true); err != nil {
			logs.Warnf("[engine] post-trade sync failed: %v", err)
		}
	}
}

// Exit liquidates shares from one position and records the realized result.
func (e *Engine) Exit(ctx context.Context, pos types.Position, shares decimal.Decimal) (*executor.Execution, error) {
	exec, err := e.executor.ExecuteExit(ctx, pos, shares)
	if err != nil {
		return nil, err
	}
	if exec.Result.Success {
		e.recordOutcome(exec.ProfitUSD)
		ev := TradeEvent{
			Signal:    exec.Signal,
			Success:   true,
			OrderID:   exec.Result.OrderID,
			ProfitUSD: exec.ProfitUSD,
			At:        e.now(),
		}
		e.bus.publishTrade(ev)
		e.saveTrade(ctx, ev)
		if err := e.SyncPositions(ctx, true); err != nil {
			logs.Warnf("[engine] post-exit sync failed: %v", err)
		}
	}
	return exec, nil
}

func (e *Engine) recordOutcome(profit decimal.Decimal) {
	e.mu.Lock()
	if profit.Sign() > 0 {
		e.wins++
	} else {
		e.losses++
	}
	e.mu.Unlock()
}

func (e *Engine) saveTrade(ctx context.Context, ev TradeEvent) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveTrade(ctx, ev); err != nil {
		logs.Warnf("[engine] trade log write failed: %v", err)
	}
}

func (e *Engine) publishStats() {
	e.mu.Lock()
	stats := Stats{
		CashUSD:      e.snapshot.CashUSD,
		PositionsUSD: e.snapshot.PositionsUSD,
		TotalUSD:     e.snapshot.TotalUSD,
		Wins:         e.wins,
		Losses:       e.losses,
		At:           e.now(),
	}
	for _, p := range e.positions {
		stats.PnL = stats.PnL.Add(p.PnL)
	}
	if total := e.wins + e.losses; total > 0 {
		stats.WinRate = decimal.NewFromInt(int64(e.wins)).Div(decimal.NewFromInt(int64(total)))
	}
	e.mu.Unlock()

	e.bus.publishStats(stats)
}
