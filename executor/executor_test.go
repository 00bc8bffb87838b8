package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dcabot/fault"
	"dcabot/journal"
	"dcabot/ledger"
	"dcabot/sim"
)

type feed map[string]float64

func (f feed) Price(ctx context.Context, instrument string) (float64, error) {
	return f[instrument], nil
}

type memJournal struct {
	fills []journal.FillRecord
}

func (m *memJournal) RecordFill(r journal.FillRecord) error {
	m.fills = append(m.fills, r)
	return nil
}

func (m *memJournal) Close() error { return nil }

func TestBuyAppendsAndJournals(t *testing.T) {
	acct := sim.NewAccount(100000, nil, feed{"KRW-BTC": 1000}, nil)
	jour := &memJournal{}
	exec := New(acct, jour, 5000, nil)

	book := ledger.Book{}
	l := book.Get("KRW-BTC", 5)

	fill, err := exec.Buy(context.Background(), l, "KRW-BTC", 20000)
	require.NoError(t, err)

	assert.Equal(t, 20000.0, fill.KRW)
	assert.Equal(t, 20.0, fill.Quantity)

	require.Len(t, l.Purchased, 1)
	assert.Equal(t, 1000.0, l.Purchased[0].Price)
	require.NotNil(t, l.LastBuyPrice)
	assert.Equal(t, 1000.0, *l.LastBuyPrice)
	assert.False(t, l.Completed)

	require.Len(t, jour.fills, 1)
	assert.Equal(t, journal.SideBuy, jour.fills[0].Side)
	assert.NotEmpty(t, jour.fills[0].FillID)
}

func TestBuyBelowMinimum(t *testing.T) {
	acct := sim.NewAccount(100000, nil, feed{"KRW-BTC": 1000}, nil)
	exec := New(acct, nil, 5000, nil)

	book := ledger.Book{}
	l := book.Get("KRW-BTC", 5)

	_, err := exec.Buy(context.Background(), l, "KRW-BTC", 4999)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBelowMinimum)
	assert.Equal(t, fault.Policy, fault.KindOf(err))
	assert.Empty(t, l.Purchased)
}

func TestBuyVenueFailureLeavesLedgerUntouched(t *testing.T) {
	acct := sim.NewAccount(1000, nil, feed{"KRW-BTC": 1000}, nil)
	exec := New(acct, nil, 5000, nil)

	book := ledger.Book{}
	l := book.Get("KRW-BTC", 5)

	_, err := exec.Buy(context.Background(), l, "KRW-BTC", 20000)
	require.Error(t, err)
	assert.True(t, fault.IsTransient(err))
	assert.Empty(t, l.Purchased)
}

func TestBuyCompletesAtInstallmentCount(t *testing.T) {
	acct := sim.NewAccount(100000, nil, feed{"KRW-BTC": 1000}, nil)
	exec := New(acct, nil, 5000, nil)

	book := ledger.Book{}
	l := book.Get("KRW-BTC", 2)

	_, err := exec.Buy(context.Background(), l, "KRW-BTC", 10000)
	require.NoError(t, err)
	assert.False(t, l.Completed)

	_, err = exec.Buy(context.Background(), l, "KRW-BTC", 10000)
	require.NoError(t, err)
	assert.True(t, l.Completed)
}

func TestSellFraction(t *testing.T) {
	acct := sim.NewAccount(0, map[string]float64{"BTC": 10}, feed{"KRW-BTC": 1100}, nil)
	jour := &memJournal{}
	exec := New(acct, jour, 5000, nil)

	book := ledger.Book{}
	l := book.Get("KRW-BTC", 5)
	require.NoError(t, l.AppendPurchase(ledger.PurchaseRecord{KRW: 10000, Quantity: 10, Price: 1000}))

	fill, err := exec.Sell(context.Background(), l, "KRW-BTC", 0.5)
	require.NoError(t, err)

	assert.Equal(t, 5.0, fill.Quantity)
	assert.Equal(t, 5500.0, fill.KRW)
	assert.Equal(t, 5.0, l.HeldQuantity())

	require.Len(t, jour.fills, 1)
	assert.Equal(t, journal.SideSell, jour.fills[0].Side)
}

func TestSellBelowMinimumValue(t *testing.T) {
	acct := sim.NewAccount(0, map[string]float64{"BTC": 10}, feed{"KRW-BTC": 100}, nil)
	exec := New(acct, nil, 5000, nil)

	book := ledger.Book{}
	l := book.Get("KRW-BTC", 5)
	require.NoError(t, l.AppendPurchase(ledger.PurchaseRecord{KRW: 1000, Quantity: 10, Price: 100}))

	// 10 x 100 = 1000 KRW, under the 5000 minimum.
	_, err := exec.Sell(context.Background(), l, "KRW-BTC", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBelowMinimum)
	assert.Equal(t, fault.Policy, fault.KindOf(err))
	assert.Empty(t, l.Sold)
}

func TestSellNothingHeld(t *testing.T) {
	acct := sim.NewAccount(0, nil, feed{"KRW-BTC": 1000}, nil)
	exec := New(acct, nil, 5000, nil)

	book := ledger.Book{}
	l := book.Get("KRW-BTC", 5)

	_, err := exec.Sell(context.Background(), l, "KRW-BTC", 1)
	require.Error(t, err)
	assert.Equal(t, fault.Policy, fault.KindOf(err))
}
