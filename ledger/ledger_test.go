package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanulsoft/kistrader/broker"
)

type stubBroker struct {
	broker.Broker

	balance broker.Balance
	err     error
}

func (s *stubBroker) Balance(ctx context.Context) (broker.Balance, error) {
	return s.balance, s.err
}

func TestRefresh_ReplacesHoldingsWholesale(t *testing.T) {
	t.Parallel()

	l := New()
	b := &stubBroker{balance: broker.Balance{
		Positions: []broker.Position{
			{Symbol: "005930", Name: "Samsung Electronics", Quantity: 10},
			{Symbol: "035720", Name: "Kakao", Quantity: 3},
		},
		TotalEval: 1_500_000,
	}}

	bal, err := l.Refresh(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, int64(1_500_000), bal.TotalEval)
	assert.Equal(t, map[string]int64{"005930": 10, "035720": 3}, l.Holdings())

	// A second refresh replaces everything; nothing is merged.
	b.balance = broker.Balance{
		Positions: []broker.Position{{Symbol: "000660", Quantity: 7}},
	}
	_, err = l.Refresh(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"000660": 7}, l.Holdings())
}

func TestRefresh_Error(t *testing.T) {
	t.Parallel()

	l := New()
	b := &stubBroker{err: errors.New("boom")}

	_, err := l.Refresh(context.Background(), b)
	assert.Error(t, err)
	assert.Empty(t, l.Holdings())
}

func TestSeedBought(t *testing.T) {
	t.Parallel()

	l := New()
	b := &stubBroker{balance: broker.Balance{
		Positions: []broker.Position{{Symbol: "005930", Quantity: 10}},
	}}
	_, err := l.Refresh(context.Background(), b)
	require.NoError(t, err)

	l.SeedBought()
	assert.True(t, l.Bought("005930"))
	assert.Equal(t, 1, l.BoughtCount())
}

func TestRecordBuyAndReset(t *testing.T) {
	t.Parallel()

	l := New()

	assert.False(t, l.Bought("005930"))
	l.RecordBuy("005930")
	l.RecordBuy("035720")
	l.RecordBuy("035720") // idempotent
	assert.True(t, l.Bought("005930"))
	assert.Equal(t, 2, l.BoughtCount())

	l.ResetForNewLiquidation()
	assert.Zero(t, l.BoughtCount())
	assert.False(t, l.Bought("005930"))
}

func TestHoldings_ReturnsCopy(t *testing.T) {
	t.Parallel()

	l := New()
	b := &stubBroker{balance: broker.Balance{
		Positions: []broker.Position{{Symbol: "005930", Quantity: 10}},
	}}
	_, err := l.Refresh(context.Background(), b)
	require.NoError(t, err)

	h := l.Holdings()
	h["005930"] = 0
	assert.Equal(t, int64(10), l.Holdings()["005930"])
}
