// journal/journal.go
package journal

import "time"

// FillRecord is one executed order, buy or sell. The JSON ledger stays
// the source of truth for engine decisions; the journal is an append-only
// audit trail that must never feed back into them.
type FillRecord struct {
	FillID     string
	Instrument string
	Side       string // "buy" or "sell"
	KRW        float64
	Quantity   float64
	Price      float64
	Time       time.Time
}

const (
	SideBuy  = "buy"
	SideSell = "sell"
)

type Journal interface {
	RecordFill(FillRecord) error
	Close() error
}

// Nop discards every record; used when no journal is configured.
type Nop struct{}

func (Nop) RecordFill(FillRecord) error { return nil }
func (Nop) Close() error                { return nil }
