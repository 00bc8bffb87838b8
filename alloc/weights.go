// Package alloc turns the configured investment total into per-order
// amounts: weight-string normalization, plan preparation, and the two
// budget policies (static-weighted and pooled-dynamic).
package alloc

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"dcabot/market"
)

// ParseWeights normalizes a raw ALLOCATIONS string ("btc:0.5,KRW-ETH:30")
// into per-instrument fractions summing to 1.
//
// Symbols match the configured instrument list case-insensitively, bare
// currency codes included. Values summing above 1.01 are treated as
// percentages when the sum stays within 100, otherwise renormalized by the
// sum. Unweighted instruments split the remaining fraction equally.
// Malformed pairs are skipped with a warning; an unusable string degrades
// to an equal split. Never fatal.
func ParseWeights(raw string, instruments []string, log *zap.Logger) map[string]float64 {
	if log == nil {
		log = zap.NewNop()
	}
	if len(instruments) == 0 {
		return map[string]float64{}
	}

	specified := map[string]float64{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sym, val, ok := strings.Cut(part, ":")
		if !ok {
			log.Warn("allocation entry missing value, skipping", zap.String("entry", part))
			continue
		}
		inst, ok := market.Match(sym, instruments)
		if !ok {
			log.Warn("allocation symbol not in instrument list, skipping", zap.String("symbol", sym))
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil || v < 0 {
			log.Warn("allocation value unparsable, skipping",
				zap.String("entry", part), zap.Error(err))
			continue
		}
		specified[inst] = v
	}

	var sum float64
	for _, v := range specified {
		sum += v
	}

	// Values given as percentages: "btc:50,eth:30" means 0.5/0.3.
	if sum > 1.01 {
		div := sum
		if sum <= 100 {
			div = 100
		}
		for k, v := range specified {
			specified[k] = v / div
		}
		sum = 0
		for _, v := range specified {
			sum += v
		}
	}

	// Unweighted instruments share whatever fraction is left.
	weights := map[string]float64{}
	var unweighted []string
	for _, inst := range instruments {
		if v, ok := specified[inst]; ok {
			weights[inst] = v
		} else {
			unweighted = append(unweighted, inst)
		}
	}
	if len(unweighted) > 0 {
		remaining := 1 - sum
		if remaining < 0 {
			remaining = 0
		}
		share := remaining / float64(len(unweighted))
		for _, inst := range unweighted {
			weights[inst] = share
		}
	}

	// Renormalize so the final weights sum to exactly 1.
	var total float64
	for _, v := range weights {
		total += v
	}
	if total <= 0 {
		return equalSplit(instruments)
	}
	for k, v := range weights {
		weights[k] = v / total
	}
	return weights
}

func equalSplit(instruments []string) map[string]float64 {
	weights := make(map[string]float64, len(instruments))
	share := 1.0 / float64(len(instruments))
	for _, inst := range instruments {
		weights[inst] = share
	}
	return weights
}
