// market/instruments.go
package market

import "strings"

// DefaultInstruments is the instrument set used when none is configured.
var DefaultInstruments = []string{"KRW-BTC", "KRW-ETH", "KRW-XRP"}

// QuoteCurrency is the settlement currency for all supported markets.
const QuoteCurrency = "KRW"

// Currency returns the base currency code of a market symbol:
// "KRW-BTC" -> "BTC". A bare code passes through unchanged.
func Currency(instrument string) string {
	if i := strings.IndexByte(instrument, '-'); i >= 0 {
		return instrument[i+1:]
	}
	return instrument
}

// Normalize upper-cases a symbol and qualifies a bare currency code with
// the KRW market prefix: "btc" -> "KRW-BTC", "krw-eth" -> "KRW-ETH".
func Normalize(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return ""
	}
	if strings.ContainsRune(s, '-') {
		return s
	}
	return QuoteCurrency + "-" + s
}

// Match resolves a user-supplied symbol against a configured instrument
// list. Matching is case-insensitive and accepts either the full market
// symbol or the bare currency code. Returns the canonical instrument and
// whether a match was found.
func Match(symbol string, instruments []string) (string, bool) {
	want := Normalize(symbol)
	if want == "" {
		return "", false
	}
	for _, inst := range instruments {
		if strings.EqualFold(inst, want) {
			return inst, true
		}
	}
	return "", false
}
