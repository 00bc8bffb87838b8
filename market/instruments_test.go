package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrency(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "BTC", Currency("KRW-BTC"))
	assert.Equal(t, "XRP", Currency("KRW-XRP"))
	assert.Equal(t, "ETH", Currency("ETH"))
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "KRW-BTC", Normalize("btc"))
	assert.Equal(t, "KRW-ETH", Normalize(" krw-eth "))
	assert.Equal(t, "KRW-XRP", Normalize("KRW-XRP"))
	assert.Equal(t, "", Normalize("  "))
}

func TestMatch(t *testing.T) {
	t.Parallel()

	instruments := []string{"KRW-BTC", "KRW-ETH", "KRW-XRP"}

	inst, ok := Match("btc", instruments)
	assert.True(t, ok)
	assert.Equal(t, "KRW-BTC", inst)

	inst, ok = Match("krw-eth", instruments)
	assert.True(t, ok)
	assert.Equal(t, "KRW-ETH", inst)

	_, ok = Match("DOGE", instruments)
	assert.False(t, ok)

	_, ok = Match("", instruments)
	assert.False(t, ok)
}
