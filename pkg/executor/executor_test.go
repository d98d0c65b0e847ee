package executor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmbbz/betmirror-sub005/pkg/clob/clobtypes"
	"github.com/vmbbz/betmirror-sub005/pkg/data"
	"github.com/vmbbz/betmirror-sub005/pkg/types"
)

type fakeExchange struct {
	mu      sync.Mutex
	calls   int32
	intents []types.OrderIntent
	result  clobtypes.OrderResult
	block   chan struct{} // when set, CreateOrder waits until closed
}

func (f *fakeExchange) CreateOrder(ctx context.Context, intent types.OrderIntent) clobtypes.OrderResult {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	f.intents = append(f.intents, intent)
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return f.result
}

type fakeWallets struct {
	value decimal.Decimal
	err   error
}

func (f *fakeWallets) Trades(ctx context.Context, req *data.TradesRequest) ([]data.Trade, error) {
	return nil, nil
}
func (f *fakeWallets) Positions(ctx context.Context, req *data.PositionsRequest) ([]data.PositionData, error) {
	return nil, nil
}
func (f *fakeWallets) Value(ctx context.Context, user string) (decimal.Decimal, error) {
	return f.value, f.err
}

func filled(shares, price string) clobtypes.OrderResult {
	return clobtypes.OrderResult{
		Success:      true,
		OrderID:      "order-1",
		SharesFilled: decimal.RequireFromString(shares),
		PriceFilled:  decimal.RequireFromString(price),
	}
}

func testSignal() types.TradeSignal {
	return types.TradeSignal{
		ID:       "sig-1",
		Trader:   "0xsource",
		MarketID: "0xmarket",
		TokenID:  "123",
		Side:     types.SideBuy,
		SizeUSD:  decimal.NewFromInt(100),
	}
}

func TestExecuteSignalSubmitsProportionalOrder(t *testing.T) {
	ex := &fakeExchange{result: filled("9", "0.5")}
	svc := NewService(ex, &fakeWallets{value: decimal.NewFromInt(1000)}, DefaultConfig())

	exec, err := svc.ExecuteSignal(context.Background(), testSignal(), decimal.NewFromInt(50))
	require.NoError(t, err)
	require.False(t, exec.Skipped)
	assert.Equal(t, "proportional", exec.Reason)
	assert.True(t, exec.SizedUSD.Equal(decimal.RequireFromString("4.54")), "sized %s", exec.SizedUSD)
	require.Len(t, ex.intents, 1)
	assert.True(t, ex.intents[0].SizeUSD.Equal(exec.SizedUSD))
	assert.Equal(t, types.SideBuy, ex.intents[0].Side)
}

func TestExecuteSignalSkipsWhenTooSmall(t *testing.T) {
	ex := &fakeExchange{}
	svc := NewService(ex, &fakeWallets{value: decimal.NewFromInt(1000)}, DefaultConfig())

	exec, err := svc.ExecuteSignal(context.Background(), testSignal(), decimal.RequireFromString("0.5"))
	require.NoError(t, err)
	assert.True(t, exec.Skipped)
	assert.Equal(t, "insufficient_for_min_order", exec.Reason)
	assert.EqualValues(t, 0, atomic.LoadInt32(&ex.calls))
}

func TestExecuteSignalCoalescesDuplicates(t *testing.T) {
	ex := &fakeExchange{result: filled("9", "0.5"), block: make(chan struct{})}
	svc := NewService(ex, &fakeWallets{value: decimal.NewFromInt(1000)}, DefaultConfig())

	first := make(chan error, 1)
	go func() {
		_, err := svc.ExecuteSignal(context.Background(), testSignal(), decimal.NewFromInt(50))
		first <- err
	}()

	// Wait for the first submission to be in flight.
	for atomic.LoadInt32(&ex.calls) == 0 {
		time.Sleep(time.Millisecond)
	}

	_, err := svc.ExecuteSignal(context.Background(), testSignal(), decimal.NewFromInt(50))
	assert.ErrorIs(t, err, ErrInFlight)

	close(ex.block)
	require.NoError(t, <-first)
	assert.EqualValues(t, 1, atomic.LoadInt32(&ex.calls))
}

func TestExecuteSignalStaleLockIsStolen(t *testing.T) {
	ex := &fakeExchange{result: filled("9", "0.5")}
	svc := NewService(ex, &fakeWallets{value: decimal.NewFromInt(1000)}, DefaultConfig())

	now := time.Now()
	svc.now = func() time.Time { return now }
	require.True(t, svc.acquire("0xmarket|123|BUY"))

	// Within the TTL the tuple is still held.
	_, err := svc.ExecuteSignal(context.Background(), testSignal(), decimal.NewFromInt(50))
	assert.ErrorIs(t, err, ErrInFlight)

	now = now.Add(31 * time.Second)
	exec, err := svc.ExecuteSignal(context.Background(), testSignal(), decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.False(t, exec.Skipped)
}

func TestExecuteExitRejectsOverdraw(t *testing.T) {
	svc := NewService(&fakeExchange{}, &fakeWallets{}, DefaultConfig())
	pos := types.Position{
		MarketID: "0xmarket",
		TokenID:  "123",
		Shares:   decimal.NewFromInt(5),
	}
	_, err := svc.ExecuteExit(context.Background(), pos, decimal.NewFromInt(6))
	require.Error(t, err)

	_, err = svc.ExecuteExit(context.Background(), pos, decimal.Zero)
	require.Error(t, err)
}

func TestExecuteExitComputesRealizedProfit(t *testing.T) {
	ex := &fakeExchange{result: filled("10", "0.6")}
	svc := NewService(ex, &fakeWallets{}, DefaultConfig())
	pos := types.Position{
		MarketID:   "0xmarket",
		TokenID:    "123",
		Shares:     decimal.NewFromInt(10),
		EntryPrice: decimal.RequireFromString("0.5"),
	}

	exec, err := svc.ExecuteExit(context.Background(), pos, decimal.NewFromInt(10))
	require.NoError(t, err)
	require.True(t, exec.Result.Success)
	assert.True(t, exec.ProfitUSD.Equal(decimal.NewFromInt(1)), "profit %s", exec.ProfitUSD)
	require.Len(t, ex.intents, 1)
	assert.True(t, ex.intents[0].SizeShares.Equal(decimal.NewFromInt(10)))
	assert.True(t, ex.intents[0].SizeUSD.IsZero())
}

func TestExecuteExitCustomEstimator(t *testing.T) {
	ex := &fakeExchange{result: filled("10", "0.6")}
	svc := NewService(ex, &fakeWallets{}, DefaultConfig())
	svc.EstimateProfit = func(entry, fill, shares decimal.Decimal) decimal.Decimal {
		return decimal.NewFromInt(42)
	}
	pos := types.Position{
		MarketID:   "0xmarket",
		TokenID:    "123",
		Shares:     decimal.NewFromInt(10),
		EntryPrice: decimal.RequireFromString("0.5"),
	}

	exec, err := svc.ExecuteExit(context.Background(), pos, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.True(t, exec.ProfitUSD.Equal(decimal.NewFromInt(42)))
}

func TestSourceBalanceLookupFailureDegrades(t *testing.T) {
	ex := &fakeExchange{result: filled("9", "0.5")}
	svc := NewService(ex, &fakeWallets{err: context.DeadlineExceeded}, DefaultConfig())

	// Source bankroll unknown: the ratio denominator degrades to the trade
	// size itself, which still produces a bounded order.
	exec, err := svc.ExecuteSignal(context.Background(), testSignal(), decimal.NewFromInt(50))
	require.NoError(t, err)
	require.False(t, exec.Skipped)
	assert.True(t, exec.SizedUSD.LessThanOrEqual(decimal.NewFromInt(50)))
}
