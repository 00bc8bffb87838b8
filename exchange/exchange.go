// Package exchange defines the capability boundary toward the venue:
// balance lookup, current price, market buy, market sell. The engine only
// ever sees this interface; live and simulated execution are two
// implementations behind it.
package exchange

import (
	"context"
	"time"
)

// Fill is the normalized result of an executed market order.
type Fill struct {
	Instrument string
	Price      float64
	Quantity   float64
	KRW        float64
	Time       time.Time
}

type Client interface {
	// Balance returns the available amount of a currency ("KRW", "BTC").
	Balance(ctx context.Context, currency string) (float64, error)
	// Price returns the current trade price for a market instrument.
	Price(ctx context.Context, instrument string) (float64, error)
	// MarketBuy spends krw on a market order and reports the fill.
	MarketBuy(ctx context.Context, instrument string, krw float64) (Fill, error)
	// MarketSell sells quantity at market and reports the fill.
	MarketSell(ctx context.Context, instrument string, quantity float64) (Fill, error)
}

// PriceSource is the read-only subset a simulated account needs to price
// its fills.
type PriceSource interface {
	Price(ctx context.Context, instrument string) (float64, error)
}
