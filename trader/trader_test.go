package trader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanulsoft/kistrader/broker"
	"github.com/hanulsoft/kistrader/journal"
	"github.com/hanulsoft/kistrader/session"
)

// fakeBroker scripts quotes and records orders. Unless submit is set,
// orders succeed and the balance mutates as if they filled, so the next
// wholesale refresh sees the fill.
type fakeBroker struct {
	prices map[string]int64
	ranges map[string]broker.DailyRange
	cash   int64

	balance      broker.Balance
	balanceCalls int
	orders       []broker.OrderRequest

	authErr error
	submit  func(broker.OrderRequest) (broker.OrderResult, error)
}

func (f *fakeBroker) Authenticate(ctx context.Context) error { return f.authErr }

func (f *fakeBroker) CurrentPrice(ctx context.Context, symbol string) (int64, error) {
	p, ok := f.prices[symbol]
	if !ok {
		return 0, fmt.Errorf("%s: %w", symbol, broker.ErrNoMarketData)
	}
	return p, nil
}

func (f *fakeBroker) DailyRange(ctx context.Context, symbol string) (broker.DailyRange, error) {
	r, ok := f.ranges[symbol]
	if !ok {
		return broker.DailyRange{}, fmt.Errorf("%s: %w", symbol, broker.ErrNoMarketData)
	}
	return r, nil
}

func (f *fakeBroker) Balance(ctx context.Context) (broker.Balance, error) {
	f.balanceCalls++
	return f.balance, nil
}

func (f *fakeBroker) AvailableCash(ctx context.Context) (int64, error) { return f.cash, nil }

func (f *fakeBroker) SubmitOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	f.orders = append(f.orders, req)
	if f.submit != nil {
		return f.submit(req)
	}

	switch req.Side {
	case broker.Buy:
		f.balance.Positions = append(f.balance.Positions, broker.Position{
			Symbol:   req.Symbol,
			Quantity: req.Quantity,
		})
	case broker.Sell:
		kept := f.balance.Positions[:0]
		for _, p := range f.balance.Positions {
			if p.Symbol != req.Symbol {
				kept = append(kept, p)
			}
		}
		f.balance.Positions = kept
	}
	return broker.OrderResult{Success: true, Raw: `{"rt_cd":"0"}`}, nil
}

type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) Notify(text string) { f.messages = append(f.messages, text) }

func (f *fakeNotifier) contains(substr string) bool {
	for _, m := range f.messages {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

// compactSchedule compresses the session into fifteen minutes so a
// one-minute tick walks every phase quickly.
func compactSchedule(t *testing.T) session.Schedule {
	t.Helper()

	s, err := session.New(time.UTC, "09:00:00", "09:05:00", "09:10:00", "09:15:00")
	require.NoError(t, err)
	return s
}

func fullSchedule(t *testing.T) session.Schedule {
	t.Helper()

	s, err := session.New(time.UTC, "09:00:00", "09:05:00", "15:15:00", "15:20:00")
	require.NoError(t, err)
	return s
}

func testPacing() Pacing {
	return Pacing{TickInterval: time.Minute, AuditPause: time.Minute}
}

// 2024-01-01 is a Monday.
func monday(hour, min, sec int) time.Time {
	return time.Date(2024, 1, 1, hour, min, sec, 0, time.UTC)
}

// newTestTrader wires a trader whose clock only advances when the loop
// sleeps, making every tick deterministic.
func newTestTrader(cfg Config, fb *fakeBroker, start time.Time) (*Trader, *fakeNotifier) {
	n := &fakeNotifier{}
	tr := New(cfg, fb, n, journal.Noop{}, zerolog.Nop())

	current := start
	tr.now = func() time.Time { return current }
	tr.sleep = func(d time.Duration) { current = current.Add(d) }
	tr.exec.now = tr.now
	return tr, n
}

func ordersBySide(orders []broker.OrderRequest, side broker.Side) []broker.OrderRequest {
	var out []broker.OrderRequest
	for _, o := range orders {
		if o.Side == side {
			out = append(out, o)
		}
	}
	return out
}

func TestMorningLiquidationRunsOnce(t *testing.T) {
	t.Parallel()

	fb := &fakeBroker{
		cash: 1_000_000,
		balance: broker.Balance{
			Positions: []broker.Position{{Symbol: "005930", Quantity: 5}},
		},
	}
	tr, notes := newTestTrader(Config{
		Watchlist:      []string{"005930"},
		TargetBuyCount: 1,
		BuyPercent:     0.5,
		Schedule:       compactSchedule(t),
		Pacing:         testPacing(),
	}, fb, monday(9, 1, 0))

	require.NoError(t, tr.Run(context.Background()))

	// Ticks at 09:02-09:04 stay inside the window; the sale must not repeat.
	sells := ordersBySide(fb.orders, broker.Sell)
	require.Len(t, sells, 1)
	assert.Equal(t, "005930", sells[0].Symbol)
	assert.Equal(t, int64(5), sells[0].Quantity)

	assert.True(t, notes.contains("market closed"))
}

func TestEndToEndBuyThenCloseout(t *testing.T) {
	t.Parallel()

	fb := &fakeBroker{
		cash: 505,
		ranges: map[string]broker.DailyRange{
			"A": {TodayOpen: 100, PrevHigh: 100, PrevLow: 100}, // target 100
			"B": {TodayOpen: 100, PrevHigh: 100, PrevLow: 100},
		},
		prices: map[string]int64{"A": 101, "B": 111},
	}
	tr, notes := newTestTrader(Config{
		Watchlist:      []string{"A", "B"},
		TargetBuyCount: 1,
		BuyPercent:     1.0, // budget 505 at price 101 buys 5 shares
		Schedule:       compactSchedule(t),
		Pacing:         testPacing(),
	}, fb, monday(9, 5, 0))

	require.NoError(t, tr.Run(context.Background()))

	buys := ordersBySide(fb.orders, broker.Buy)
	require.Len(t, buys, 1, "bound of one buy holds across every trading tick")
	assert.Equal(t, "A", buys[0].Symbol)
	assert.Equal(t, int64(5), buys[0].Quantity)

	// B also signals a breakout but the bound is already reached.
	sells := ordersBySide(fb.orders, broker.Sell)
	require.Len(t, sells, 1, "closeout liquidates the bought position exactly once")
	assert.Equal(t, "A", sells[0].Symbol)
	assert.Equal(t, int64(5), sells[0].Quantity)

	assert.True(t, notes.contains("broke out"))
}

func TestBuyBoundAcrossWatchlist(t *testing.T) {
	t.Parallel()

	rng := broker.DailyRange{TodayOpen: 100, PrevHigh: 100, PrevLow: 100}
	fb := &fakeBroker{
		cash:   505,
		ranges: map[string]broker.DailyRange{"A": rng, "B": rng, "C": rng},
		prices: map[string]int64{"A": 101, "B": 101, "C": 101},
	}
	tr, _ := newTestTrader(Config{
		Watchlist:      []string{"A", "B", "C"},
		TargetBuyCount: 2,
		BuyPercent:     1.0,
		Schedule:       compactSchedule(t),
		Pacing:         testPacing(),
	}, fb, monday(9, 5, 0))

	require.NoError(t, tr.Run(context.Background()))

	buys := ordersBySide(fb.orders, broker.Buy)
	require.Len(t, buys, 2)
	assert.Equal(t, "A", buys[0].Symbol)
	assert.Equal(t, "B", buys[1].Symbol)

	sells := ordersBySide(fb.orders, broker.Sell)
	assert.Len(t, sells, 2)
}

func TestNoBuyWhenQuantityZero(t *testing.T) {
	t.Parallel()

	fb := &fakeBroker{
		cash:   50, // budget far below one share
		ranges: map[string]broker.DailyRange{"A": {TodayOpen: 100, PrevHigh: 100, PrevLow: 100}},
		prices: map[string]int64{"A": 101},
	}
	tr, _ := newTestTrader(Config{
		Watchlist:      []string{"A"},
		TargetBuyCount: 1,
		BuyPercent:     1.0,
		Schedule:       compactSchedule(t),
		Pacing:         testPacing(),
	}, fb, monday(9, 5, 0))

	require.NoError(t, tr.Run(context.Background()))
	assert.Empty(t, fb.orders)
}

func TestRejectedBuyIsRetriedNextTick(t *testing.T) {
	t.Parallel()

	fb := &fakeBroker{
		cash:   505,
		ranges: map[string]broker.DailyRange{"A": {TodayOpen: 100, PrevHigh: 100, PrevLow: 100}},
		prices: map[string]int64{"A": 101},
		submit: func(broker.OrderRequest) (broker.OrderResult, error) {
			return broker.OrderResult{Success: false, Raw: `{"rt_cd":"1"}`}, nil
		},
	}
	tr, _ := newTestTrader(Config{
		Watchlist:      []string{"A"},
		TargetBuyCount: 1,
		BuyPercent:     1.0,
		Schedule:       compactSchedule(t),
		Pacing:         testPacing(),
	}, fb, monday(9, 5, 0))

	require.NoError(t, tr.Run(context.Background()))

	// Trading ticks at 09:05-09:09: the rejection never lands in the
	// bought set, so each tick retries.
	buys := ordersBySide(fb.orders, broker.Buy)
	assert.Len(t, buys, 5)
	assert.Empty(t, ordersBySide(fb.orders, broker.Sell))
}

func TestCloseoutRunsOnce(t *testing.T) {
	t.Parallel()

	fb := &fakeBroker{
		cash: 1_000_000,
		balance: broker.Balance{
			Positions: []broker.Position{{Symbol: "A", Quantity: 5}},
		},
	}
	tr, _ := newTestTrader(Config{
		Watchlist:      []string{"A"},
		TargetBuyCount: 1,
		BuyPercent:     0.5,
		Schedule:       fullSchedule(t),
		Pacing:         testPacing(),
	}, fb, monday(15, 16, 0))

	require.NoError(t, tr.Run(context.Background()))

	// 15:16 liquidates; 15:17-15:19 must not sell again.
	sells := ordersBySide(fb.orders, broker.Sell)
	require.Len(t, sells, 1)
	assert.Equal(t, "A", sells[0].Symbol)
	assert.Equal(t, int64(5), sells[0].Quantity)
}

func TestWeekendExitsImmediately(t *testing.T) {
	t.Parallel()

	fb := &fakeBroker{cash: 1_000_000}
	tr, notes := newTestTrader(Config{
		Watchlist:      []string{"A"},
		TargetBuyCount: 1,
		BuyPercent:     0.5,
		Schedule:       fullSchedule(t),
		Pacing:         testPacing(),
	}, fb, time.Date(2024, 1, 6, 12, 0, 0, 0, time.UTC)) // Saturday

	require.NoError(t, tr.Run(context.Background()))
	assert.Empty(t, fb.orders)
	assert.True(t, notes.contains("weekend"))
}

func TestTransportErrorIsFatal(t *testing.T) {
	t.Parallel()

	fb := &fakeBroker{
		cash:   505,
		ranges: map[string]broker.DailyRange{"A": {TodayOpen: 100, PrevHigh: 100, PrevLow: 100}},
		prices: map[string]int64{"A": 101},
		submit: func(broker.OrderRequest) (broker.OrderResult, error) {
			return broker.OrderResult{}, errors.New("connection reset")
		},
	}
	tr, _ := newTestTrader(Config{
		Watchlist:      []string{"A"},
		TargetBuyCount: 1,
		BuyPercent:     1.0,
		Schedule:       compactSchedule(t),
		Pacing:         testPacing(),
	}, fb, monday(9, 5, 0))

	err := tr.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestAuthenticationFailureIsFatal(t *testing.T) {
	t.Parallel()

	fb := &fakeBroker{authErr: errors.New("invalid app key")}
	tr, _ := newTestTrader(Config{
		Watchlist:      []string{"A"},
		TargetBuyCount: 1,
		BuyPercent:     0.5,
		Schedule:       fullSchedule(t),
		Pacing:         testPacing(),
	}, fb, monday(10, 0, 0))

	err := tr.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authenticate")
}

func TestHalfHourAuditRefreshesBalance(t *testing.T) {
	t.Parallel()

	fb := &fakeBroker{cash: 1_000_000}
	tr, _ := newTestTrader(Config{
		Watchlist:      []string{"X"}, // no market data: every evaluation skips
		TargetBuyCount: 1,
		BuyPercent:     0.5,
		Schedule:       fullSchedule(t),
		Pacing:         testPacing(),
	}, fb, monday(9, 29, 0))

	require.NoError(t, tr.Run(context.Background()))

	// One refresh at session start, one per half-hour audit (09:30,
	// 10:30, ..., 14:30), one in the closeout window.
	assert.Equal(t, 8, fb.balanceCalls)
	assert.Empty(t, fb.orders)
}

func TestContextCancellationStopsLoop(t *testing.T) {
	t.Parallel()

	fb := &fakeBroker{cash: 1_000_000}
	tr, notes := newTestTrader(Config{
		Watchlist:      []string{"A"},
		TargetBuyCount: 1,
		BuyPercent:     0.5,
		Schedule:       fullSchedule(t),
		Pacing:         testPacing(),
	}, fb, monday(10, 0, 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, tr.Run(ctx))
	assert.True(t, notes.contains("shutdown requested"))
}
