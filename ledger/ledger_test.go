package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buy(krw, qty, price float64) PurchaseRecord {
	return PurchaseRecord{KRW: krw, Quantity: qty, Price: price, Timestamp: time.Now().UTC()}
}

func sell(qty, price float64) SaleRecord {
	return SaleRecord{Quantity: qty, Price: price, KRW: qty * price, Timestamp: time.Now().UTC()}
}

func TestStateProgression(t *testing.T) {
	t.Parallel()

	l := &InstrumentLedger{Installments: 2}
	assert.Equal(t, Planned, l.State())

	require.NoError(t, l.AppendPurchase(buy(20000, 20, 1000)))
	assert.Equal(t, Accumulating, l.State())
	assert.False(t, l.Completed)

	require.NoError(t, l.AppendPurchase(buy(20000, 20.4, 980)))
	assert.Equal(t, Completed, l.State())
	assert.True(t, l.Completed)

	require.NoError(t, l.AppendSale(sell(40.4, 1100)))
	require.NoError(t, l.MarkExited())
	assert.Equal(t, Exited, l.State())
}

func TestExitedIsTerminal(t *testing.T) {
	t.Parallel()

	l := &InstrumentLedger{Installments: 5}
	require.NoError(t, l.AppendPurchase(buy(10000, 10, 1000)))
	require.NoError(t, l.AppendSale(sell(10, 1100)))
	require.NoError(t, l.MarkExited())

	assert.Error(t, l.AppendPurchase(buy(10000, 10, 1000)))
	assert.Error(t, l.AppendSale(sell(1, 1100)))
}

func TestMarkExitedRequiresSale(t *testing.T) {
	t.Parallel()

	l := &InstrumentLedger{Installments: 5}
	require.NoError(t, l.AppendPurchase(buy(10000, 10, 1000)))
	assert.Error(t, l.MarkExited())
}

func TestHeldQuantityNeverNegative(t *testing.T) {
	t.Parallel()

	l := &InstrumentLedger{Installments: 5}
	require.NoError(t, l.AppendPurchase(buy(10000, 10, 1000)))
	// A sale larger than the buy should floor held quantity at zero.
	require.NoError(t, l.AppendSale(sell(12, 1100)))
	assert.Equal(t, 0.0, l.HeldQuantity())
}

func TestAvgBuyPrice(t *testing.T) {
	t.Parallel()

	l := &InstrumentLedger{Installments: 5}
	assert.Equal(t, 0.0, l.AvgBuyPrice())

	require.NoError(t, l.AppendPurchase(buy(10000, 10, 1000)))
	require.NoError(t, l.AppendPurchase(buy(10000, 12.5, 800)))
	assert.InDelta(t, 20000.0/22.5, l.AvgBuyPrice(), 1e-9)
}

func TestBookGetCreatesOnce(t *testing.T) {
	t.Parallel()

	b := Book{}
	l := b.Get("KRW-BTC", 5)
	assert.Equal(t, 5, l.Installments)

	require.NoError(t, l.AppendPurchase(buy(5000, 5, 1000)))
	again := b.Get("KRW-BTC", 3)
	assert.Len(t, again.Purchased, 1)
	assert.Equal(t, 5, again.Installments)
}

func TestBookTotalSpent(t *testing.T) {
	t.Parallel()

	b := Book{}
	require.NoError(t, b.Get("KRW-BTC", 5).AppendPurchase(buy(20000, 1, 20000)))
	require.NoError(t, b.Get("KRW-ETH", 5).AppendPurchase(buy(15000, 3, 5000)))
	assert.InDelta(t, 35000, b.TotalSpent(), 1e-9)
}
