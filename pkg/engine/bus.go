package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vmbbz/betmirror-sub005/pkg/mm"
	"github.com/vmbbz/betmirror-sub005/pkg/signals"
	"github.com/vmbbz/betmirror-sub005/pkg/types"
)

// LogEvent is one human-readable engine event.
type LogEvent struct {
	Level   string
	Message string
	At      time.Time
}

// TradeEvent reports one completed (or skipped) trade execution.
type TradeEvent struct {
	Signal    types.TradeSignal
	SizedUSD  decimal.Decimal
	Reason    string
	Success   bool
	OrderID   string
	ProfitUSD decimal.Decimal
	At        time.Time
}

// Stats is the aggregate snapshot published each heartbeat.
type Stats struct {
	CashUSD      decimal.Decimal
	PositionsUSD decimal.Decimal
	TotalUSD     decimal.Decimal
	PnL          decimal.Decimal
	Wins         int
	Losses       int
	WinRate      decimal.Decimal
	At           time.Time
}

// Bus carries engine events on one bounded channel per category. A slow
// consumer never stalls the heartbeat: when a channel is full the oldest
// event is dropped to make room.
type Bus struct {
	logs      chan LogEvent
	positions chan []types.Position
	stats     chan Stats
	trades    chan TradeEvent
	arb       chan []mm.Opportunity
	fomo      chan signals.FomoSnipe
}

// NewBus builds a bus with the given per-category buffer depth.
func NewBus(depth int) *Bus {
	if depth <= 0 {
		depth = 32
	}
	return &Bus{
		logs:      make(chan LogEvent, depth),
		positions: make(chan []types.Position, depth),
		stats:     make(chan Stats, depth),
		trades:    make(chan TradeEvent, depth),
		arb:       make(chan []mm.Opportunity, depth),
		fomo:      make(chan signals.FomoSnipe, depth),
	}
}

// Logs is the log event stream.
func (b *Bus) Logs() <-chan LogEvent { return b.logs }

// Positions delivers the full position list after each successful sync.
func (b *Bus) Positions() <-chan []types.Position { return b.positions }

// Stats delivers the aggregate snapshot each heartbeat.
func (b *Bus) Stats() <-chan Stats { return b.stats }

// Trades delivers completed trade executions.
func (b *Bus) Trades() <-chan TradeEvent { return b.trades }

// Opportunities delivers the scanner's current opportunity ranking.
func (b *Bus) Opportunities() <-chan []mm.Opportunity { return b.arb }

// FomoSnipes delivers momentum detections.
func (b *Bus) FomoSnipes() <-chan signals.FomoSnipe { return b.fomo }

func (b *Bus) publishLog(ev LogEvent)               { publish(b.logs, ev) }
func (b *Bus) publishPositions(ps []types.Position) { publish(b.positions, ps) }
func (b *Bus) publishStats(s Stats)                 { publish(b.stats, s) }
func (b *Bus) publishTrade(ev TradeEvent)           { publish(b.trades, ev) }
func (b *Bus) publishArb(opps []mm.Opportunity)     { publish(b.arb, opps) }
func (b *Bus) publishFomo(snipe signals.FomoSnipe)  { publish(b.fomo, snipe) }

// publish sends without blocking, dropping the oldest buffered event when
// the channel is full.
func publish[T any](ch chan T, ev T) {
	for {
		select {
		case ch <- ev:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
