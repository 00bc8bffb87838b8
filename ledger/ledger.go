// Package ledger owns the durable purchase/sale history and trigger state
// for every instrument. The on-disk document is the single source of truth
// for resumability: everything the engine needs to continue after a crash
// is recomputed from it.
package ledger

import (
	"fmt"
	"time"
)

// PurchaseRecord is appended once per successful buy. Field names in JSON
// match the original purchases file so an existing document resumes as-is.
type PurchaseRecord struct {
	KRW       float64   `json:"krw"`
	Quantity  float64   `json:"amount"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// SaleRecord is appended once per successful sell.
type SaleRecord struct {
	Quantity  float64   `json:"amount"`
	Price     float64   `json:"price"`
	KRW       float64   `json:"krw"`
	Timestamp time.Time `json:"timestamp"`
}

// InstrumentLedger carries the full per-instrument accumulation state.
type InstrumentLedger struct {
	TargetKRW    float64          `json:"target_krw"`
	Installments int              `json:"installments"`
	Purchased    []PurchaseRecord `json:"purchased"`
	Sold         []SaleRecord     `json:"sold"`
	LastBuyPrice *float64         `json:"last_buy_price,omitempty"`
	NextBuyPrice *float64         `json:"next_buy_price,omitempty"`
	Completed    bool             `json:"completed"`
	Exited       bool             `json:"exited"`
}

// Book maps instrument -> ledger. The whole book is loaded and stored as
// one document.
type Book map[string]*InstrumentLedger

// State is the derived per-instrument lifecycle position.
type State int

const (
	Planned State = iota
	Accumulating
	Completed
	Exited // terminal
)

func (s State) String() string {
	switch s {
	case Planned:
		return "PLANNED"
	case Accumulating:
		return "ACCUMULATING"
	case Completed:
		return "COMPLETED"
	case Exited:
		return "EXITED"
	}
	return "UNKNOWN"
}

// State derives the lifecycle position from stored flags and history.
func (l *InstrumentLedger) State() State {
	switch {
	case l.Exited:
		return Exited
	case l.Completed:
		return Completed
	case len(l.Purchased) > 0:
		return Accumulating
	}
	return Planned
}

// Done reports whether the instrument takes no further buys.
func (l *InstrumentLedger) Done() bool {
	return l.Completed || l.Exited
}

// HeldQuantity is total bought minus total sold, floored at zero.
func (l *InstrumentLedger) HeldQuantity() float64 {
	held := l.TotalBought() - l.TotalSold()
	if held < 0 {
		return 0
	}
	return held
}

// TotalSpent is the KRW sum across all purchases.
func (l *InstrumentLedger) TotalSpent() float64 {
	var sum float64
	for _, p := range l.Purchased {
		sum += p.KRW
	}
	return sum
}

// TotalBought is the quantity sum across all purchases.
func (l *InstrumentLedger) TotalBought() float64 {
	var sum float64
	for _, p := range l.Purchased {
		sum += p.Quantity
	}
	return sum
}

// TotalSold is the quantity sum across all sales.
func (l *InstrumentLedger) TotalSold() float64 {
	var sum float64
	for _, s := range l.Sold {
		sum += s.Quantity
	}
	return sum
}

// AvgBuyPrice is total spent over total bought quantity, 0 with no buys.
func (l *InstrumentLedger) AvgBuyPrice() float64 {
	bought := l.TotalBought()
	if bought <= 0 {
		return 0
	}
	return l.TotalSpent() / bought
}

// AppendPurchase records a buy and flags completion once the planned
// installment count is reached. Exited instruments are terminal.
func (l *InstrumentLedger) AppendPurchase(rec PurchaseRecord) error {
	if l.Exited {
		return fmt.Errorf("instrument already exited")
	}
	l.Purchased = append(l.Purchased, rec)
	l.LastBuyPrice = ptr(rec.Price)
	if l.Installments > 0 && len(l.Purchased) >= l.Installments {
		l.Completed = true
	}
	return nil
}

// AppendSale records a sell. An exit sale additionally marks the
// instrument exited by the caller.
func (l *InstrumentLedger) AppendSale(rec SaleRecord) error {
	if l.Exited {
		return fmt.Errorf("instrument already exited")
	}
	l.Sold = append(l.Sold, rec)
	return nil
}

// MarkExited transitions to the terminal state. Requires at least one
// recorded sale.
func (l *InstrumentLedger) MarkExited() error {
	if len(l.Sold) == 0 {
		return fmt.Errorf("cannot exit without a recorded sale")
	}
	l.Exited = true
	return nil
}

// Get returns the ledger for an instrument, creating an empty one with
// the given installment plan on first use.
func (b Book) Get(instrument string, installments int) *InstrumentLedger {
	if l, ok := b[instrument]; ok {
		return l
	}
	l := &InstrumentLedger{
		Installments: installments,
		Purchased:    []PurchaseRecord{},
		Sold:         []SaleRecord{},
	}
	b[instrument] = l
	return l
}

// TotalSpent is the KRW sum across every instrument's purchases.
func (b Book) TotalSpent() float64 {
	var sum float64
	for _, l := range b {
		sum += l.TotalSpent()
	}
	return sum
}

func ptr(f float64) *float64 { return &f }
