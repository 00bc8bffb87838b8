// Package executor turns trade decisions into exchange orders and ledger
// entries. It owns the minimum-order policy and the audit journal; the
// ledger book it mutates is persisted by the caller.
package executor

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"dcabot/exchange"
	"dcabot/fault"
	"dcabot/journal"
	"dcabot/ledger"
	"dcabot/pkg/id"
)

// ErrBelowMinimum marks a buy skipped because the order size is under the
// venue minimum. Carried as a policy fault, not a failure.
var ErrBelowMinimum = errors.New("order below minimum value")

type Executor struct {
	client exchange.Client
	jour   journal.Journal
	minKRW float64
	log    *zap.Logger
}

func New(client exchange.Client, jour journal.Journal, minKRW float64, log *zap.Logger) *Executor {
	if jour == nil {
		jour = journal.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{client: client, jour: jour, minKRW: minKRW, log: log}
}

// MinOrder is the configured minimum order value in KRW.
func (e *Executor) MinOrder() float64 { return e.minKRW }

// BelowMin reports whether a buy of this size would be refused.
func (e *Executor) BelowMin(krw float64) bool { return krw < e.minKRW }

// Buy places a market buy and appends the purchase to the ledger. The
// returned fill reflects what the venue reported.
func (e *Executor) Buy(ctx context.Context, l *ledger.InstrumentLedger, instrument string, krw float64) (exchange.Fill, error) {
	if e.BelowMin(krw) {
		return exchange.Fill{}, fault.New(fault.Policy, "executor.buy", ErrBelowMinimum)
	}

	fill, err := e.client.MarketBuy(ctx, instrument, krw)
	if err != nil {
		return exchange.Fill{}, err
	}

	rec := ledger.PurchaseRecord{
		KRW:       fill.KRW,
		Quantity:  fill.Quantity,
		Price:     fill.Price,
		Timestamp: fill.Time,
	}
	if err := l.AppendPurchase(rec); err != nil {
		return fill, fault.New(fault.Data, "executor.buy", err)
	}

	e.journalFill(fill, journal.SideBuy)
	e.log.Info("buy filled",
		zap.String("instrument", instrument),
		zap.Float64("krw", fill.KRW),
		zap.Float64("quantity", fill.Quantity),
		zap.Float64("price", fill.Price),
		zap.Int("installment", len(l.Purchased)),
		zap.Int("of", l.Installments))
	return fill, nil
}

// Sell liquidates fraction of the held quantity at market and appends the
// sale to the ledger.
func (e *Executor) Sell(ctx context.Context, l *ledger.InstrumentLedger, instrument string, fraction float64) (exchange.Fill, error) {
	held := l.HeldQuantity()
	if held <= 0 {
		return exchange.Fill{}, fault.Newf(fault.Policy, "executor.sell", "nothing held for %s", instrument)
	}
	if fraction <= 0 || fraction > 1 {
		fraction = 1
	}
	quantity := held * fraction

	// The venue's minimum applies to sells as well, valued at the
	// current price.
	price, err := e.client.Price(ctx, instrument)
	if err != nil {
		return exchange.Fill{}, err
	}
	if quantity*price < e.minKRW {
		return exchange.Fill{}, fault.New(fault.Policy, "executor.sell", ErrBelowMinimum)
	}

	fill, err := e.client.MarketSell(ctx, instrument, quantity)
	if err != nil {
		return exchange.Fill{}, err
	}

	rec := ledger.SaleRecord{
		Quantity:  fill.Quantity,
		Price:     fill.Price,
		KRW:       fill.KRW,
		Timestamp: fill.Time,
	}
	if err := l.AppendSale(rec); err != nil {
		return fill, fault.New(fault.Data, "executor.sell", err)
	}

	e.journalFill(fill, journal.SideSell)
	e.log.Info("sell filled",
		zap.String("instrument", instrument),
		zap.Float64("quantity", fill.Quantity),
		zap.Float64("krw", fill.KRW),
		zap.Float64("price", fill.Price))
	return fill, nil
}

// The journal is best effort: the ledger already holds the fill, so an
// audit write failure is logged and dropped.
func (e *Executor) journalFill(fill exchange.Fill, side string) {
	ts := fill.Time
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	err := e.jour.RecordFill(journal.FillRecord{
		FillID:     id.New(),
		Instrument: fill.Instrument,
		Side:       side,
		KRW:        fill.KRW,
		Quantity:   fill.Quantity,
		Price:      fill.Price,
		Time:       ts,
	})
	if err != nil {
		e.log.Warn("journal write failed", zap.String("side", side), zap.Error(err))
	}
}
