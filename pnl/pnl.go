// Package pnl computes unrealized profit/loss on the held position and
// decides when accumulated profit justifies liquidation.
package pnl

import "dcabot/ledger"

// Stats is the unrealized position snapshot for one instrument.
type Stats struct {
	Held            float64
	AvgBuyPrice     float64
	InvestedForHeld float64
	CurrentPrice    float64
	CurrentValue    float64
	UnrealizedKRW   float64
	UnrealizedPct   float64
}

// Targets holds the configured exit conditions. A nil target is not
// evaluated; either configured condition independently triggers an exit.
type Targets struct {
	ProfitPct *float64
	ProfitKRW *float64
}

// Configured reports whether any exit condition exists at all.
func (t Targets) Configured() bool {
	return t.ProfitPct != nil || t.ProfitKRW != nil
}

// Compute derives the unrealized snapshot from the ledger and the current
// price. Invested capital for the held quantity uses the average buy
// price, so partial sells reduce it proportionally.
func Compute(l *ledger.InstrumentLedger, currentPrice float64) Stats {
	held := l.HeldQuantity()
	avg := l.AvgBuyPrice()
	invested := avg * held
	value := held * currentPrice

	s := Stats{
		Held:            held,
		AvgBuyPrice:     avg,
		InvestedForHeld: invested,
		CurrentPrice:    currentPrice,
		CurrentValue:    value,
		UnrealizedKRW:   value - invested,
	}
	if invested > 0 {
		s.UnrealizedPct = s.UnrealizedKRW / invested * 100
	}
	return s
}

// ShouldExit fires only with an actual position and at least one
// satisfied configured target.
func ShouldExit(s Stats, targets Targets) bool {
	if s.Held <= 0 || s.InvestedForHeld <= 0 {
		return false
	}
	if targets.ProfitPct != nil && s.UnrealizedPct >= *targets.ProfitPct {
		return true
	}
	if targets.ProfitKRW != nil && s.UnrealizedKRW >= *targets.ProfitKRW {
		return true
	}
	return false
}
