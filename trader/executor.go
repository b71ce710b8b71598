package trader

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hanulsoft/kistrader/broker"
	"github.com/hanulsoft/kistrader/journal"
	"github.com/hanulsoft/kistrader/metrics"
	"github.com/hanulsoft/kistrader/notify"
	"github.com/hanulsoft/kistrader/pkg/id"
)

// Executor submits market orders and reports every outcome on the
// notification channel with the raw brokerage response attached.
//
// The boolean result is the brokerage's accept/reject decision; a
// rejection is an expected, recoverable outcome. The error is
// transport-level only and fatal to the session. Callers must pass a
// positive quantity; the executor trusts them.
type Executor struct {
	broker  broker.Broker
	notify  notify.Notifier
	journal journal.Journal
	log     zerolog.Logger
	now     func() time.Time
}

func NewExecutor(b broker.Broker, n notify.Notifier, j journal.Journal, log zerolog.Logger) *Executor {
	return &Executor{
		broker:  b,
		notify:  n,
		journal: j,
		log:     log,
		now:     time.Now,
	}
}

// Buy submits a full-quantity market buy. price is the last traded price
// the order was sized at, recorded for the audit trail only.
func (e *Executor) Buy(ctx context.Context, symbol string, quantity, price int64) (bool, error) {
	return e.submit(ctx, broker.Buy, symbol, quantity, price)
}

// Sell submits a full-quantity market sell.
func (e *Executor) Sell(ctx context.Context, symbol string, quantity int64) (bool, error) {
	return e.submit(ctx, broker.Sell, symbol, quantity, 0)
}

func (e *Executor) submit(ctx context.Context, side broker.Side, symbol string, quantity, price int64) (bool, error) {
	res, err := e.broker.SubmitOrder(ctx, broker.OrderRequest{
		Symbol:   symbol,
		Quantity: quantity,
		Side:     side,
	})
	if err != nil {
		return false, fmt.Errorf("%s %s: %w", side, symbol, err)
	}

	orderID := id.New()
	rec := journal.OrderRecord{
		OrderID:  orderID,
		Symbol:   symbol,
		Side:     string(side),
		Quantity: quantity,
		Price:    price,
		Success:  res.Success,
		Raw:      res.Raw,
		Time:     e.now(),
	}
	if err := e.journal.RecordOrder(rec); err != nil {
		e.log.Warn().Err(err).Str("order_id", orderID).Msg("journal write failed")
	}

	outcome := "rejected"
	if res.Success {
		outcome = "accepted"
	}
	metrics.OrdersTotal.WithLabelValues(string(side), outcome).Inc()
	e.log.Info().
		Str("order_id", orderID).
		Str("side", string(side)).
		Str("symbol", symbol).
		Int64("quantity", quantity).
		Bool("success", res.Success).
		Msg("order submitted")

	if res.Success {
		e.notify.Notify(fmt.Sprintf("[%s success] %s x%d %s", side, symbol, quantity, res.Raw))
	} else {
		e.notify.Notify(fmt.Sprintf("[%s failed] %s x%d %s", side, symbol, quantity, res.Raw))
	}

	return res.Success, nil
}
