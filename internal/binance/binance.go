// Package binance is a minimal client for the Binance spot REST API.
// It reads last-trade prices for trading pairs and the exchange's pair listing.
package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/apperrors"
)

// codeInvalidSymbol is the Binance error code for a pair it does not list.
const codeInvalidSymbol = -1121

// Client fetches ticker prices from the Binance REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Binance client for baseURL (for example
// "https://api.binance.com/api/v3"). timeout bounds every request.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type tickerPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// ExchangeSymbol is one trading pair from the exchangeInfo listing.
type ExchangeSymbol struct {
	Symbol     string `json:"symbol"`
	Status     string `json:"status"`
	BaseAsset  string `json:"baseAsset"`
	QuoteAsset string `json:"quoteAsset"`
}

// Trading reports whether the pair is currently open for trading.
func (s ExchangeSymbol) Trading() bool {
	return s.Status == "TRADING"
}

type exchangeInfo struct {
	Symbols []ExchangeSymbol `json:"symbols"`
}

type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// TickerPrice returns the last price of a single trading pair such as "BTCUSDT".
func (c *Client) TickerPrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("symbol", pair)

	var ticker tickerPrice
	if err := c.get(ctx, "/ticker/price?"+q.Encode(), &ticker); err != nil {
		return decimal.Zero, fmt.Errorf("ticker %s: %w", pair, err)
	}
	price, err := parsePrice(ticker.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ticker %s: %w", pair, err)
	}
	return price, nil
}

// TickerPrices returns the last prices of several pairs in one request.
// Pairs Binance does not return are absent from the map. Binance rejects the
// whole request when any pair is unknown; callers that need per-pair results
// should fall back to TickerPrice.
func (c *Client) TickerPrices(ctx context.Context, pairs []string) (map[string]decimal.Decimal, error) {
	if len(pairs) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	encoded, err := json.Marshal(pairs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode symbols: %w", err)
	}
	q := url.Values{}
	q.Set("symbols", string(encoded))

	var tickers []tickerPrice
	if err := c.get(ctx, "/ticker/price?"+q.Encode(), &tickers); err != nil {
		return nil, fmt.Errorf("batch ticker: %w", err)
	}

	prices := make(map[string]decimal.Decimal, len(tickers))
	for _, t := range tickers {
		price, err := parsePrice(t.Price)
		if err != nil {
			return nil, fmt.Errorf("batch ticker %s: %w", t.Symbol, err)
		}
		prices[t.Symbol] = price
	}
	return prices, nil
}

// ExchangeInfo returns every pair Binance lists, in any status.
func (c *Client) ExchangeInfo(ctx context.Context) ([]ExchangeSymbol, error) {
	var info exchangeInfo
	if err := c.get(ctx, "/exchangeInfo", &info); err != nil {
		return nil, fmt.Errorf("exchange info: %w", err)
	}
	return info.Symbols, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrSourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrSourceUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Code == codeInvalidSymbol {
			return fmt.Errorf("%w: %s", apperrors.ErrSymbolUnknown, apiErr.Msg)
		}
		return fmt.Errorf("%w: status %d", apperrors.ErrSourceUnavailable, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrSourceDataInvalid, err)
	}
	return nil
}

var errEmptyPrice = errors.New("empty price")

// parsePrice accepts only '.' as the decimal separator, whatever the host locale.
func parsePrice(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: %v", apperrors.ErrSourceDataInvalid, errEmptyPrice)
	}
	if strings.Contains(s, ",") {
		return decimal.Zero, fmt.Errorf("%w: malformed price %q", apperrors.ErrSourceDataInvalid, s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", apperrors.ErrSourceDataInvalid, err)
	}
	return d, nil
}
