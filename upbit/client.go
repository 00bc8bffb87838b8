// Package upbit is the live exchange client. Public market data needs no
// credentials; account and order endpoints carry a signed JWT. All calls
// share one rate limiter so the engine stays inside the venue's request
// budget regardless of how many instruments it polls.
package upbit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"dcabot/exchange"
	"dcabot/fault"
)

// DefaultURL is the Upbit Open API endpoint.
const DefaultURL = "https://api.upbit.com"

// Client implements exchange.Client against the Upbit REST API.
type Client struct {
	baseURL    string
	signer     *signer
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a live client. Empty credentials leave only the public
// endpoints usable (Price); authenticated calls then fail fast.
func NewClient(accessKey, secretKey string) *Client {
	c := &Client{
		baseURL: DefaultURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		// 8 req/s with a small burst, below Upbit's public quota.
		limiter: rate.NewLimiter(rate.Limit(8), 8),
	}
	if accessKey != "" && secretKey != "" {
		c.signer = newSigner(accessKey, secretKey)
	}
	return c
}

type tickerEntry struct {
	Market     string  `json:"market"`
	TradePrice float64 `json:"trade_price"`
}

// Price returns the latest trade price for a market instrument.
func (c *Client) Price(ctx context.Context, instrument string) (float64, error) {
	params := url.Values{}
	params.Set("markets", instrument)

	var ticks []tickerEntry
	if err := c.get(ctx, "/v1/ticker", params, false, &ticks); err != nil {
		return 0, err
	}
	if len(ticks) == 0 || ticks[0].TradePrice <= 0 {
		return 0, fault.Newf(fault.Transient, "upbit.price", "no ticker for %s", instrument)
	}
	return ticks[0].TradePrice, nil
}

type accountEntry struct {
	Currency string `json:"currency"`
	Balance  string `json:"balance"`
}

// Balance returns the available amount of one currency.
func (c *Client) Balance(ctx context.Context, currency string) (float64, error) {
	var accounts []accountEntry
	if err := c.get(ctx, "/v1/accounts", nil, true, &accounts); err != nil {
		return 0, err
	}
	for _, a := range accounts {
		if a.Currency == currency {
			bal, err := strconv.ParseFloat(a.Balance, 64)
			if err != nil {
				return 0, fault.New(fault.Transient, "upbit.balance", err)
			}
			return bal, nil
		}
	}
	return 0, nil
}

type orderResponse struct {
	UUID           string `json:"uuid"`
	State          string `json:"state"`
	ExecutedVolume string `json:"executed_volume"`
	Trades         []struct {
		Price  string `json:"price"`
		Volume string `json:"volume"`
		Funds  string `json:"funds"`
	} `json:"trades"`
}

// MarketBuy places a price-type market order spending krw and reports the
// fill. If the order has not produced trades by the time it is looked up,
// the fill is approximated from the current ticker.
func (c *Client) MarketBuy(ctx context.Context, instrument string, krw float64) (exchange.Fill, error) {
	params := url.Values{}
	params.Set("market", instrument)
	params.Set("side", "bid")
	params.Set("ord_type", "price")
	params.Set("price", strconv.FormatFloat(krw, 'f', -1, 64))

	var placed orderResponse
	if err := c.post(ctx, "/v1/orders", params, &placed); err != nil {
		return exchange.Fill{}, err
	}
	return c.resolveFill(ctx, instrument, placed.UUID, krw, 0)
}

// MarketSell places a market-type sell order for quantity.
func (c *Client) MarketSell(ctx context.Context, instrument string, quantity float64) (exchange.Fill, error) {
	params := url.Values{}
	params.Set("market", instrument)
	params.Set("side", "ask")
	params.Set("ord_type", "market")
	params.Set("volume", strconv.FormatFloat(quantity, 'f', -1, 64))

	var placed orderResponse
	if err := c.post(ctx, "/v1/orders", params, &placed); err != nil {
		return exchange.Fill{}, err
	}
	return c.resolveFill(ctx, instrument, placed.UUID, 0, quantity)
}

// resolveFill looks the order up once. Market orders normally fill
// immediately; when trades are still missing the fill falls back to the
// current ticker so a record always exists.
func (c *Client) resolveFill(ctx context.Context, instrument, uuid string, krw, quantity float64) (exchange.Fill, error) {
	now := time.Now().UTC()

	var ord orderResponse
	params := url.Values{}
	params.Set("uuid", uuid)
	if err := c.get(ctx, "/v1/order", params, true, &ord); err == nil && len(ord.Trades) > 0 {
		var funds, volume float64
		for _, tr := range ord.Trades {
			f, _ := strconv.ParseFloat(tr.Funds, 64)
			v, _ := strconv.ParseFloat(tr.Volume, 64)
			funds += f
			volume += v
		}
		if volume > 0 {
			return exchange.Fill{
				Instrument: instrument,
				Price:      funds / volume,
				Quantity:   volume,
				KRW:        funds,
				Time:       now,
			}, nil
		}
	}

	price, err := c.Price(ctx, instrument)
	if err != nil {
		return exchange.Fill{}, err
	}
	fill := exchange.Fill{Instrument: instrument, Price: price, Time: now}
	if krw > 0 {
		fill.KRW = krw
		fill.Quantity = krw / price
	} else {
		fill.Quantity = quantity
		fill.KRW = quantity * price
	}
	return fill, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, auth bool, out any) error {
	apiURL := c.baseURL + path
	if len(params) > 0 {
		apiURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fault.New(fault.Transient, "upbit.request", err)
	}
	if auth {
		if err := c.authorize(req, params); err != nil {
			return err
		}
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, params url.Values, out any) error {
	body := params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(body))
	if err != nil {
		return fault.New(fault.Transient, "upbit.request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if err := c.authorize(req, params); err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) authorize(req *http.Request, params url.Values) error {
	if c.signer == nil {
		return fault.Newf(fault.Config, "upbit.auth", "no API credentials configured")
	}
	token, err := c.signer.token(params)
	if err != nil {
		return fault.New(fault.Config, "upbit.auth", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

func (c *Client) do(req *http.Request, out any) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return fault.New(fault.Transient, "upbit.ratelimit", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fault.New(fault.Transient, "upbit.request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fault.Newf(fault.Transient, "upbit.request",
			"API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fault.New(fault.Transient, "upbit.decode", err)
	}
	return nil
}

// assert the interface is satisfied
var _ exchange.Client = (*Client)(nil)
