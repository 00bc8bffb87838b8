package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dcabot/fault"
)

// feed is a static price source for tests.
type feed map[string]float64

func (f feed) Price(_ context.Context, instrument string) (float64, error) {
	p, ok := f[instrument]
	if !ok {
		return 0, fault.Newf(fault.Transient, "feed", "no price for %s", instrument)
	}
	return p, nil
}

func TestBuyMovesBalances(t *testing.T) {
	t.Parallel()

	a := NewAccount(100000, nil, feed{"KRW-BTC": 50000}, zap.NewNop())
	ctx := context.Background()

	fill, err := a.MarketBuy(ctx, "KRW-BTC", 20000)
	require.NoError(t, err)
	assert.InDelta(t, 50000, fill.Price, 1e-9)
	assert.InDelta(t, 0.4, fill.Quantity, 1e-9)
	assert.InDelta(t, 20000, fill.KRW, 1e-9)

	krw, err := a.Balance(ctx, "KRW")
	require.NoError(t, err)
	assert.InDelta(t, 80000, krw, 1e-9)

	btc, err := a.Balance(ctx, "BTC")
	require.NoError(t, err)
	assert.InDelta(t, 0.4, btc, 1e-9)
}

func TestBuyInsufficientBalance(t *testing.T) {
	t.Parallel()

	a := NewAccount(10000, nil, feed{"KRW-BTC": 50000}, zap.NewNop())
	_, err := a.MarketBuy(context.Background(), "KRW-BTC", 20000)
	require.Error(t, err)
	assert.Equal(t, fault.Transient, fault.KindOf(err))

	// Balance untouched after the rejected buy.
	krw, _ := a.Balance(context.Background(), "KRW")
	assert.InDelta(t, 10000, krw, 1e-9)
}

func TestSellCapsAtHolding(t *testing.T) {
	t.Parallel()

	a := NewAccount(0, map[string]float64{"ETH": 2}, feed{"KRW-ETH": 3000000}, zap.NewNop())
	ctx := context.Background()

	fill, err := a.MarketSell(ctx, "KRW-ETH", 5)
	require.NoError(t, err)
	assert.InDelta(t, 2, fill.Quantity, 1e-9)
	assert.InDelta(t, 6000000, fill.KRW, 1e-9)

	eth, _ := a.Balance(ctx, "ETH")
	assert.InDelta(t, 0, eth, 1e-9)
	krw, _ := a.Balance(ctx, "KRW")
	assert.InDelta(t, 6000000, krw, 1e-9)
}

func TestSellNothingHeld(t *testing.T) {
	t.Parallel()

	a := NewAccount(0, nil, feed{"KRW-XRP": 700}, zap.NewNop())
	_, err := a.MarketSell(context.Background(), "KRW-XRP", 10)
	require.Error(t, err)
	assert.Equal(t, fault.Policy, fault.KindOf(err))
}

func TestPriceFailurePropagates(t *testing.T) {
	t.Parallel()

	a := NewAccount(100000, nil, feed{}, zap.NewNop())
	_, err := a.MarketBuy(context.Background(), "KRW-BTC", 20000)
	require.Error(t, err)
	assert.True(t, fault.IsTransient(err))
}
