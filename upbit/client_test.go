package upbit

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dcabot/fault"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient("access", "secret")
	c.baseURL = srv.URL
	return c
}

func TestPrice(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/ticker", r.URL.Path)
		assert.Equal(t, "KRW-BTC", r.URL.Query().Get("markets"))
		json.NewEncoder(w).Encode([]tickerEntry{{Market: "KRW-BTC", TradePrice: 52000000}})
	})

	price, err := c.Price(context.Background(), "KRW-BTC")
	require.NoError(t, err)
	assert.InDelta(t, 52000000, price, 1e-9)
}

func TestPriceEmptyTicker(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]tickerEntry{})
	})

	_, err := c.Price(context.Background(), "KRW-BTC")
	require.Error(t, err)
	assert.True(t, fault.IsTransient(err))
}

func TestBalance(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts", r.URL.Path)
		auth := r.Header.Get("Authorization")
		assert.True(t, strings.HasPrefix(auth, "Bearer "))
		json.NewEncoder(w).Encode([]accountEntry{
			{Currency: "KRW", Balance: "150000.5"},
			{Currency: "BTC", Balance: "0.004"},
		})
	})

	bal, err := c.Balance(context.Background(), "KRW")
	require.NoError(t, err)
	assert.InDelta(t, 150000.5, bal, 1e-9)

	// Unknown currency reads as zero, not an error.
	bal, err = c.Balance(context.Background(), "XRP")
	require.NoError(t, err)
	assert.Zero(t, bal)
}

func TestBalanceWithoutCredentials(t *testing.T) {
	c := NewClient("", "")
	_, err := c.Balance(context.Background(), "KRW")
	require.Error(t, err)
	assert.Equal(t, fault.Config, fault.KindOf(err))
}

func TestMarketBuyResolvesFillFromTrades(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/orders":
			assert.Equal(t, http.MethodPost, r.Method)
			body, _ := url.ParseQuery(readBody(r))
			assert.Equal(t, "KRW-BTC", body.Get("market"))
			assert.Equal(t, "bid", body.Get("side"))
			assert.Equal(t, "price", body.Get("ord_type"))
			assert.Equal(t, "20000", body.Get("price"))
			json.NewEncoder(w).Encode(orderResponse{UUID: "ord-1"})
		case "/v1/order":
			assert.Equal(t, "ord-1", r.URL.Query().Get("uuid"))
			json.NewEncoder(w).Encode(map[string]any{
				"uuid":  "ord-1",
				"state": "done",
				"trades": []map[string]string{
					{"price": "50000000", "volume": "0.0002", "funds": "10000"},
					{"price": "50000000", "volume": "0.0002", "funds": "10000"},
				},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	fill, err := c.MarketBuy(context.Background(), "KRW-BTC", 20000)
	require.NoError(t, err)
	assert.InDelta(t, 50000000, fill.Price, 1e-3)
	assert.InDelta(t, 0.0004, fill.Quantity, 1e-12)
	assert.InDelta(t, 20000, fill.KRW, 1e-9)
}

func TestMarketSellFallsBackToTicker(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/orders":
			json.NewEncoder(w).Encode(orderResponse{UUID: "ord-2"})
		case "/v1/order":
			// Not filled yet: no trades.
			json.NewEncoder(w).Encode(orderResponse{UUID: "ord-2", State: "wait"})
		case "/v1/ticker":
			json.NewEncoder(w).Encode([]tickerEntry{{Market: "KRW-ETH", TradePrice: 3000000}})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	fill, err := c.MarketSell(context.Background(), "KRW-ETH", 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 3000000, fill.Price, 1e-9)
	assert.InDelta(t, 0.5, fill.Quantity, 1e-12)
	assert.InDelta(t, 1500000, fill.KRW, 1e-9)
}

func TestAPIErrorIsTransient(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"name":"too_many_requests"}}`, http.StatusTooManyRequests)
	})

	_, err := c.Price(context.Background(), "KRW-BTC")
	require.Error(t, err)
	assert.True(t, fault.IsTransient(err))
	assert.Contains(t, err.Error(), "429")
}

func TestSignerToken(t *testing.T) {
	s := newSigner("ak", "sk")

	params := url.Values{}
	params.Set("markets", "KRW-BTC")
	token, err := s.token(params)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	// Claims carry the access key and a query hash for the params.
	var claims map[string]string
	decoded, err := decodeSegment(parts[1])
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(decoded, &claims))
	assert.Equal(t, "ak", claims["access_key"])
	assert.NotEmpty(t, claims["nonce"])
	assert.Equal(t, "SHA512", claims["query_hash_alg"])
	assert.Len(t, claims["query_hash"], 128)

	// Without params there is no query hash.
	token, err = s.token(nil)
	require.NoError(t, err)
	decoded, err = decodeSegment(strings.Split(token, ".")[1])
	require.NoError(t, err)
	claims = map[string]string{}
	require.NoError(t, json.Unmarshal(decoded, &claims))
	_, ok := claims["query_hash"]
	assert.False(t, ok)
}

func readBody(r *http.Request) string {
	b := new(strings.Builder)
	if r.Body != nil {
		buf := make([]byte, 4096)
		for {
			n, err := r.Body.Read(buf)
			b.Write(buf[:n])
			if err != nil {
				break
			}
		}
	}
	return b.String()
}

func decodeSegment(seg string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(seg)
}
