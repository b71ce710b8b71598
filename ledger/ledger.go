// Package ledger tracks the session's holdings and the set of symbols
// already bought. All state is in memory and owned by the trading loop;
// nothing survives a restart.
package ledger

import (
	"context"

	"github.com/hanulsoft/kistrader/broker"
)

// Ledger is the session's position bookkeeping. Holdings are only ever
// replaced wholesale from a brokerage snapshot; order results never patch
// them incrementally.
type Ledger struct {
	holdings map[string]int64
	bought   map[string]struct{}
}

func New() *Ledger {
	return &Ledger{
		holdings: map[string]int64{},
		bought:   map[string]struct{}{},
	}
}

// Refresh replaces holdings with a fresh snapshot from the brokerage and
// returns the snapshot so callers can report the evaluation figures.
func (l *Ledger) Refresh(ctx context.Context, b broker.Broker) (broker.Balance, error) {
	bal, err := b.Balance(ctx)
	if err != nil {
		return broker.Balance{}, err
	}

	l.holdings = make(map[string]int64, len(bal.Positions))
	for _, p := range bal.Positions {
		if p.Quantity > 0 {
			l.holdings[p.Symbol] = p.Quantity
		}
	}
	return bal, nil
}

// SeedBought marks every currently held symbol as already bought. Run
// once at session start so pre-existing positions count against the buy
// bound.
func (l *Ledger) SeedBought() {
	for sym := range l.holdings {
		l.bought[sym] = struct{}{}
	}
}

// RecordBuy adds a symbol to the bought set. Call only after the
// brokerage confirmed the buy; the set is never updated speculatively.
func (l *Ledger) RecordBuy(symbol string) {
	l.bought[symbol] = struct{}{}
}

// Bought reports whether the symbol was bought this session.
func (l *Ledger) Bought(symbol string) bool {
	_, ok := l.bought[symbol]
	return ok
}

// BoughtCount returns the size of the bought set.
func (l *Ledger) BoughtCount() int {
	return len(l.bought)
}

// ResetForNewLiquidation clears the bought set. Post-liquidation holdings
// are empty, so entry decisions start over.
func (l *Ledger) ResetForNewLiquidation() {
	l.bought = map[string]struct{}{}
}

// Holdings returns a copy of the current symbol → quantity view.
func (l *Ledger) Holdings() map[string]int64 {
	out := make(map[string]int64, len(l.holdings))
	for sym, qty := range l.holdings {
		out[sym] = qty
	}
	return out
}
