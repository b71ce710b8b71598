// Package trader runs the session control loop: phase dispatch, the
// breakout scan, liquidations, and the bookkeeping that keeps orders
// idempotent within each window.
//
// Session state lives only in memory. A restart mid-session reseeds the
// bought set from live holdings, so a symbol bought and liquidated before
// a crash can be bought again that day. That matches the source system
// and is an accepted operational risk.
package trader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hanulsoft/kistrader/broker"
	"github.com/hanulsoft/kistrader/journal"
	"github.com/hanulsoft/kistrader/ledger"
	"github.com/hanulsoft/kistrader/metrics"
	"github.com/hanulsoft/kistrader/notify"
	"github.com/hanulsoft/kistrader/risk"
	"github.com/hanulsoft/kistrader/session"
	"github.com/hanulsoft/kistrader/signal"
)

// auditWindowSec bounds the half-hour balance audit to the first seconds
// of minute 30 so one pass through the window triggers it once.
const auditWindowSec = 5

// Pacing holds the loop's sleep knobs. All delays exist to respect the
// brokerage's request rate limits and to keep notification ordering
// readable; none of them are decision-relevant.
type Pacing struct {
	// TickInterval is the sleep at the bottom of every loop pass.
	TickInterval time.Duration
	// SymbolDelay separates consecutive symbol evaluations.
	SymbolDelay time.Duration
	// NotifyDelay separates the lines of a balance report.
	NotifyDelay time.Duration
	// AuditPause follows a half-hour audit so the loop slides out of the
	// trigger window.
	AuditPause time.Duration
}

// Config is the trader's immutable per-session configuration.
type Config struct {
	Watchlist      []string
	TargetBuyCount int
	BuyPercent     float64
	Schedule       session.Schedule
	Pacing         Pacing
}

// Trader owns all session state. It is single-threaded by design: every
// brokerage and notification call happens in sequence on the loop
// goroutine, so no locking is needed.
type Trader struct {
	cfg     Config
	broker  broker.Broker
	exec    *Executor
	ledger  *ledger.Ledger
	notify  notify.Notifier
	journal journal.Journal
	log     zerolog.Logger

	now   func() time.Time
	sleep func(time.Duration)

	soldoutDone bool
	budget      float64
}

func New(cfg Config, b broker.Broker, n notify.Notifier, j journal.Journal, log zerolog.Logger) *Trader {
	return &Trader{
		cfg:     cfg,
		broker:  b,
		exec:    NewExecutor(b, n, j, log),
		ledger:  ledger.New(),
		notify:  n,
		journal: j,
		log:     log,
		now:     time.Now,
		sleep:   time.Sleep,
	}
}

// Run authenticates, seeds the session, and drives the polling loop until
// a terminal phase or a fatal error. A nil return means the session ended
// normally (weekend, market close, or context cancellation by the
// runner); any error is fatal and the caller performs the final
// notification.
func (t *Trader) Run(ctx context.Context) error {
	if err := t.broker.Authenticate(ctx); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	cash, err := t.broker.AvailableCash(ctx)
	if err != nil {
		return fmt.Errorf("available cash: %w", err)
	}
	t.budget = risk.Budget(cash, t.cfg.BuyPercent)
	t.notify.Notify(fmt.Sprintf("orderable cash: %d KRW", cash))

	bal, err := t.ledger.Refresh(ctx, t.broker)
	if err != nil {
		return fmt.Errorf("refresh holdings: %w", err)
	}
	t.ledger.SeedBought()
	t.reportBalance(bal)

	t.notify.Notify("=== domestic stock autotrading started ===")
	t.log.Info().
		Strs("watchlist", t.cfg.Watchlist).
		Int("target_buy_count", t.cfg.TargetBuyCount).
		Float64("per_symbol_budget", t.budget).
		Msg("session started")

	for {
		select {
		case <-ctx.Done():
			t.notify.Notify("shutdown requested, exiting")
			return nil
		default:
		}

		phase := t.cfg.Schedule.PhaseAt(t.now())
		metrics.TicksTotal.WithLabelValues(phase.String()).Inc()

		switch phase {
		case session.Weekend:
			t.notify.Notify("weekend, exiting")
			return nil

		case session.Closed:
			t.notify.Notify("market closed, exiting")
			return nil

		case session.MorningLiquidation:
			if !t.soldoutDone {
				if err := t.morningLiquidation(ctx); err != nil {
					return err
				}
			}

		case session.Trading:
			if err := t.scan(ctx); err != nil {
				return err
			}

		case session.Closeout:
			if !t.soldoutDone {
				if err := t.closeout(ctx); err != nil {
					return err
				}
			}
		}

		t.sleep(t.cfg.Pacing.TickInterval)
	}
}

// morningLiquidation sells the residual holdings seeded at session start,
// then refreshes so the trading window begins from live state.
func (t *Trader) morningLiquidation(ctx context.Context) error {
	if err := t.sellAll(ctx); err != nil {
		return err
	}
	t.soldoutDone = true
	t.ledger.ResetForNewLiquidation()

	bal, err := t.ledger.Refresh(ctx, t.broker)
	if err != nil {
		return fmt.Errorf("refresh holdings: %w", err)
	}
	t.reportBalance(bal)
	return nil
}

// closeout refreshes holdings and liquidates everything before the exit
// boundary.
func (t *Trader) closeout(ctx context.Context) error {
	bal, err := t.ledger.Refresh(ctx, t.broker)
	if err != nil {
		return fmt.Errorf("refresh holdings: %w", err)
	}
	t.reportBalance(bal)

	if err := t.sellAll(ctx); err != nil {
		return err
	}
	t.soldoutDone = true
	t.ledger.ResetForNewLiquidation()
	return nil
}

func (t *Trader) sellAll(ctx context.Context) error {
	for sym, qty := range t.ledger.Holdings() {
		if _, err := t.exec.Sell(ctx, sym, qty); err != nil {
			return err
		}
	}
	return nil
}

// scan walks the watch-list in order, evaluating the breakout signal for
// every symbol still eligible, then handles the half-hour balance audit.
func (t *Trader) scan(ctx context.Context) error {
	for _, sym := range t.cfg.Watchlist {
		// The bound check runs per symbol, not once per tick: a buy
		// earlier in the same pass can exhaust the budgeted count and
		// must stop the symbols after it.
		if t.ledger.BoughtCount() >= t.cfg.TargetBuyCount {
			continue
		}
		if t.ledger.Bought(sym) {
			continue
		}

		if err := t.evaluate(ctx, sym); err != nil {
			return err
		}
		t.sleep(t.cfg.Pacing.SymbolDelay)
	}

	if t.auditDue() {
		if err := t.audit(ctx); err != nil {
			return err
		}
	}
	return nil
}

// evaluate runs one breakout check for one symbol. Quotes are fetched
// fresh on every call: staleness changes trading decisions, so nothing
// here is cached across ticks.
func (t *Trader) evaluate(ctx context.Context, sym string) error {
	rng, err := t.broker.DailyRange(ctx, sym)
	if errors.Is(err, broker.ErrNoMarketData) {
		metrics.SignalChecksTotal.WithLabelValues(metrics.ResultNoData).Inc()
		t.log.Debug().Str("symbol", sym).Msg("no market data, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("evaluate %s: %w", sym, err)
	}

	price, err := t.broker.CurrentPrice(ctx, sym)
	if errors.Is(err, broker.ErrNoMarketData) {
		metrics.SignalChecksTotal.WithLabelValues(metrics.ResultNoData).Inc()
		t.log.Debug().Str("symbol", sym).Msg("no current price, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("evaluate %s: %w", sym, err)
	}

	target := signal.Target(rng.TodayOpen, rng.PrevHigh, rng.PrevLow)
	if !signal.ShouldBuy(price, target) {
		metrics.SignalChecksTotal.WithLabelValues(metrics.ResultHold).Inc()
		return nil
	}
	metrics.SignalChecksTotal.WithLabelValues(metrics.ResultBuy).Inc()

	qty := risk.Quantity(t.budget, price)
	if qty <= 0 {
		t.log.Debug().Str("symbol", sym).Int64("price", price).Msg("budget below one share, skipping")
		return nil
	}

	t.notify.Notify(fmt.Sprintf("%s broke out (target %.1f < current %d), buying %d", sym, target, price, qty))
	ok, err := t.exec.Buy(ctx, sym, qty, price)
	if err != nil {
		return err
	}
	if !ok {
		// Rejected orders are not retried this tick; the next trading
		// tick re-evaluates the symbol naturally.
		return nil
	}

	t.soldoutDone = false
	t.ledger.RecordBuy(sym)

	bal, err := t.ledger.Refresh(ctx, t.broker)
	if err != nil {
		return fmt.Errorf("refresh holdings: %w", err)
	}
	t.reportBalance(bal)
	return nil
}

// auditDue reports whether the coarse half-hour balance audit should run:
// wall-clock minute 30, within the first few seconds.
func (t *Trader) auditDue() bool {
	now := t.now().In(t.cfg.Schedule.Location)
	return now.Minute() == 30 && now.Second() <= auditWindowSec
}

func (t *Trader) audit(ctx context.Context) error {
	bal, err := t.ledger.Refresh(ctx, t.broker)
	if err != nil {
		return fmt.Errorf("refresh holdings: %w", err)
	}
	t.reportBalance(bal)
	t.sleep(t.cfg.Pacing.AuditPause)
	return nil
}

// reportBalance sends the holdings report to the operator channel and
// records the snapshot in the journal. Not decision-relevant.
func (t *Trader) reportBalance(bal broker.Balance) {
	t.notify.Notify("==== holdings ====")
	for _, p := range bal.Positions {
		t.notify.Notify(fmt.Sprintf("%s(%s): %d shares", p.Name, p.Symbol, p.Quantity))
		t.sleep(t.cfg.Pacing.NotifyDelay)
	}
	t.notify.Notify(fmt.Sprintf("securities eval: %d KRW", bal.SecuritiesEval))
	t.sleep(t.cfg.Pacing.NotifyDelay)
	t.notify.Notify(fmt.Sprintf("total p/l: %d KRW", bal.TotalPL))
	t.sleep(t.cfg.Pacing.NotifyDelay)
	t.notify.Notify(fmt.Sprintf("total eval: %d KRW", bal.TotalEval))
	t.notify.Notify("==================")

	metrics.BalanceAuditsTotal.Inc()
	if err := t.journal.RecordBalance(journal.BalanceSnapshot{
		Time:           t.now(),
		SecuritiesEval: bal.SecuritiesEval,
		TotalPL:        bal.TotalPL,
		TotalEval:      bal.TotalEval,
	}); err != nil {
		t.log.Warn().Err(err).Msg("journal write failed")
	}
}
