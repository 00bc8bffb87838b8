// Package sim provides the in-memory simulated account used when not
// trading live. Fills are priced from a real or fake price source; the
// account state lives for the process only and is never persisted.
package sim

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"dcabot/exchange"
	"dcabot/fault"
	"dcabot/market"
)

type Account struct {
	mu       sync.Mutex
	krw      float64
	holdings map[string]float64 // currency code -> quantity
	prices   exchange.PriceSource
	log      *zap.Logger
	now      func() time.Time
}

// NewAccount seeds a simulated account. holdings maps bare currency codes
// ("BTC") to initial quantities and may be nil.
func NewAccount(krw float64, holdings map[string]float64, prices exchange.PriceSource, log *zap.Logger) *Account {
	if log == nil {
		log = zap.NewNop()
	}
	h := make(map[string]float64, len(holdings))
	for ccy, qty := range holdings {
		h[ccy] = qty
	}
	return &Account{
		krw:      krw,
		holdings: h,
		prices:   prices,
		log:      log,
		now:      time.Now,
	}
}

func (a *Account) Balance(ctx context.Context, currency string) (float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if currency == market.QuoteCurrency {
		return a.krw, nil
	}
	return a.holdings[currency], nil
}

func (a *Account) Price(ctx context.Context, instrument string) (float64, error) {
	return a.prices.Price(ctx, instrument)
}

func (a *Account) MarketBuy(ctx context.Context, instrument string, krw float64) (exchange.Fill, error) {
	price, err := a.prices.Price(ctx, instrument)
	if err != nil {
		return exchange.Fill{}, err
	}
	if price <= 0 {
		return exchange.Fill{}, fault.Newf(fault.Transient, "sim.buy", "no price for %s", instrument)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if krw > a.krw {
		return exchange.Fill{}, fault.Newf(fault.Transient, "sim.buy",
			"insufficient KRW balance: need %.0f, have %.0f", krw, a.krw)
	}

	qty := krw / price
	a.krw -= krw
	a.holdings[market.Currency(instrument)] += qty

	a.log.Info("simulated buy",
		zap.String("instrument", instrument),
		zap.Float64("krw", krw),
		zap.Float64("price", price),
		zap.Float64("quantity", qty))

	return exchange.Fill{
		Instrument: instrument,
		Price:      price,
		Quantity:   qty,
		KRW:        krw,
		Time:       a.now().UTC(),
	}, nil
}

func (a *Account) MarketSell(ctx context.Context, instrument string, quantity float64) (exchange.Fill, error) {
	price, err := a.prices.Price(ctx, instrument)
	if err != nil {
		return exchange.Fill{}, err
	}
	if price <= 0 {
		return exchange.Fill{}, fault.Newf(fault.Transient, "sim.sell", "no price for %s", instrument)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	ccy := market.Currency(instrument)
	held := a.holdings[ccy]
	if quantity > held {
		// Selling more than held is not possible: cap at the holding.
		a.log.Warn("sell quantity exceeds simulated holding, capping",
			zap.String("instrument", instrument),
			zap.Float64("requested", quantity),
			zap.Float64("held", held))
		quantity = held
	}
	if quantity <= 0 {
		return exchange.Fill{}, fault.Newf(fault.Policy, "sim.sell", "nothing to sell for %s", instrument)
	}

	value := quantity * price
	a.holdings[ccy] = held - quantity
	a.krw += value

	a.log.Info("simulated sell",
		zap.String("instrument", instrument),
		zap.Float64("quantity", quantity),
		zap.Float64("price", price),
		zap.Float64("krw", value))

	return exchange.Fill{
		Instrument: instrument,
		Price:      price,
		Quantity:   quantity,
		KRW:        value,
		Time:       a.now().UTC(),
	}, nil
}
