package alloc

import (
	"fmt"

	"dcabot/ledger"
)

// Mode selects how the shared investment total becomes per-order sizes.
type Mode int

const (
	// PooledDynamic recomputes the order size every tick from remaining
	// budget and remaining installment slots across all instruments.
	// Capital flows toward instruments whose triggers fire first.
	PooledDynamic Mode = iota
	// StaticWeighted fixes a per-instrument target at plan time; the
	// order size is target / installments and never reallocates.
	StaticWeighted
)

func (m Mode) String() string {
	if m == StaticWeighted {
		return "static"
	}
	return "pooled"
}

// ParseMode maps a configured mode name. Unknown names fall back to
// pooled-dynamic.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "pooled", "pooled-dynamic", "dynamic":
		return PooledDynamic, nil
	case "static", "static-weighted", "weighted":
		return StaticWeighted, nil
	}
	return PooledDynamic, fmt.Errorf("unknown budget mode %q", s)
}

// Plan is the engine-owned budget: total to deploy, policy, and the
// normalized weights (used by the static policy only).
type Plan struct {
	Total        float64
	Mode         Mode
	Weights      map[string]float64
	Installments int
}

// TotalInvest sizes the investment pool: the absolute amount if set,
// otherwise fraction × balance; always clamped to the actual balance.
func TotalInvest(balance float64, absolute float64, fraction float64) float64 {
	total := balance * fraction
	if absolute > 0 {
		total = absolute
	}
	if total > balance {
		total = balance
	}
	if total < 0 {
		return 0
	}
	return total
}

// Prepare seeds the book with the per-instrument plan. Static targets are
// refreshed for instruments that are neither completed nor exited, as the
// original behavior resumes an in-flight accumulation under a possibly
// re-sized budget.
func (p *Plan) Prepare(book ledger.Book, instruments []string) {
	for _, inst := range instruments {
		l := book.Get(inst, p.Installments)
		if l.Done() {
			continue
		}
		l.Installments = p.Installments
		// A resumed history can already satisfy a lowered installment
		// count; re-derive completion so no extra buy fires.
		if len(l.Purchased) >= l.Installments {
			l.Completed = true
			continue
		}
		if p.Mode == StaticWeighted {
			l.TargetKRW = p.Total * p.Weights[inst]
		}
	}
}

// OrderAmount returns the KRW size of the next order for an instrument,
// 0 when no budget or no remaining slot exists.
func (p *Plan) OrderAmount(book ledger.Book, instrument string) float64 {
	if p.Mode == StaticWeighted {
		l, ok := book[instrument]
		if !ok || l.Installments <= 0 {
			return 0
		}
		return l.TargetKRW / float64(l.Installments)
	}
	return pooledOrderAmount(p.Total, book)
}

// pooledOrderAmount = remaining_budget / remaining_orders. Slots of
// completed or exited instruments no longer count, so their unused
// capacity spreads across the instruments still accumulating. The result
// can never allocate more than total − spent in aggregate.
func pooledOrderAmount(total float64, book ledger.Book) float64 {
	remaining := total - book.TotalSpent()
	if remaining <= 0 {
		return 0
	}

	var slots int
	for _, l := range book {
		if l.Done() {
			continue
		}
		if rem := l.Installments - len(l.Purchased); rem > 0 {
			slots += rem
		}
	}
	if slots <= 0 {
		return 0
	}
	return remaining / float64(slots)
}
