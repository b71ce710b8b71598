// Package journal persists an audit trail of orders and balance
// snapshots. The journal is write-only at runtime: the trading loop never
// reads it back, so session state stays in memory only and a restart
// starts from a clean slate.
package journal

import "time"

// OrderRecord is one submitted order and the brokerage's decision on it.
type OrderRecord struct {
	OrderID  string
	Symbol   string
	Side     string
	Quantity int64
	// Price is the last traded price when the order was sized. Zero for
	// liquidation sells, which are not priced before submission.
	Price   int64
	Success bool
	Raw     string
	Time    time.Time
}

// BalanceSnapshot is the account's evaluation figures at audit time.
type BalanceSnapshot struct {
	Time           time.Time
	SecuritiesEval int64
	TotalPL        int64
	TotalEval      int64
}

type Journal interface {
	RecordOrder(OrderRecord) error
	RecordBalance(BalanceSnapshot) error
	Close() error
}

// Noop discards all records. Used when journaling is disabled.
type Noop struct{}

func (Noop) RecordOrder(OrderRecord) error       { return nil }
func (Noop) RecordBalance(BalanceSnapshot) error { return nil }
func (Noop) Close() error                        { return nil }
