// Package broker defines the brokerage surface the trading loop depends
// on. Implementations live elsewhere (see package kis); the loop only
// ever sees this interface.
package broker

import (
	"context"
	"errors"
)

// ErrNoMarketData is returned by quote lookups when the brokerage has no
// usable price history for a symbol (newly listed, halted, bad code).
// Callers skip the symbol for the current tick; it is not fatal.
var ErrNoMarketData = errors.New("no market data")

// Side is the order direction.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Position is the held quantity of one symbol. Quantity is always
// positive; zero-quantity rows are dropped before they reach callers.
type Position struct {
	Symbol   string
	Name     string
	Quantity int64
}

// Balance is a wholesale snapshot of the account: every held position
// plus the aggregate evaluation figures the brokerage reports with it.
// Amounts are integer KRW.
type Balance struct {
	Positions      []Position
	SecuritiesEval int64
	TotalPL        int64
	TotalEval      int64
}

// DailyRange carries the prices the breakout signal needs: today's
// opening price and the prior trading day's high/low.
type DailyRange struct {
	TodayOpen int64
	PrevHigh  int64
	PrevLow   int64
}

// OrderRequest is a full-quantity market order. Quantity must be
// positive; callers size the order before submitting.
type OrderRequest struct {
	Symbol   string
	Quantity int64
	Side     Side
}

// OrderResult reports the brokerage's decision on an order. Success
// false is a business rejection, not a transport failure; Raw carries
// the response body verbatim for the audit trail.
type OrderResult struct {
	Success bool
	Code    string
	Message string
	Raw     string
}

type Broker interface {
	// Authenticate obtains the access token used by every other call.
	// Failure here is fatal to the process.
	Authenticate(ctx context.Context) error
	CurrentPrice(ctx context.Context, symbol string) (int64, error)
	DailyRange(ctx context.Context, symbol string) (DailyRange, error)
	Balance(ctx context.Context) (Balance, error)
	AvailableCash(ctx context.Context) (int64, error)
	SubmitOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
}
