// Package trigger maintains the drop-trigger rule: the next qualifying
// buy price per instrument and its evaluation against the market.
package trigger

import (
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"dcabot/market"
)

// priceScale fixes the precision of computed trigger prices so a restart
// recomputes bit-identical thresholds from the persisted reference.
const priceScale = 1e8

// Monitor resolves the drop percentage per instrument, with a global
// default fallback.
type Monitor struct {
	DefaultPct float64
	PerCoin    map[string]float64
}

// NewMonitor builds a monitor from the global percentage and the raw
// per-coin override string ("KRW-BTC:2.5,eth:3"). Unparsable entries are
// skipped with a warning.
func NewMonitor(defaultPct float64, perCoinRaw string, instruments []string, log *zap.Logger) *Monitor {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Monitor{DefaultPct: defaultPct, PerCoin: map[string]float64{}}

	for _, part := range strings.Split(perCoinRaw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sym, val, ok := strings.Cut(part, ":")
		if !ok {
			log.Warn("drop pct entry missing value, skipping", zap.String("entry", part))
			continue
		}
		inst, ok := market.Match(sym, instruments)
		if !ok {
			log.Warn("drop pct symbol not in instrument list, skipping", zap.String("symbol", sym))
			continue
		}
		pct, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil || pct < 0 {
			log.Warn("drop pct value unparsable, skipping",
				zap.String("entry", part), zap.Error(err))
			continue
		}
		m.PerCoin[inst] = pct
	}
	return m
}

// DropPct returns the trigger percentage for an instrument.
func (m *Monitor) DropPct(instrument string) float64 {
	if pct, ok := m.PerCoin[instrument]; ok {
		return pct
	}
	return m.DefaultPct
}

// NextBuyPrice derives the trigger threshold from a reference price: the
// last fill when one exists, otherwise the first observed market price.
func (m *Monitor) NextBuyPrice(instrument string, reference float64) float64 {
	pct := m.DropPct(instrument)
	return round(reference * (1 - pct/100))
}

// Fires reports whether the current price satisfies the trigger.
func Fires(current, nextBuy float64) bool {
	return current > 0 && current <= nextBuy
}

func round(x float64) float64 {
	return math.Round(x*priceScale) / priceScale
}
