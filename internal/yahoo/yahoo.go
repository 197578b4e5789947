package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/apperrors"
)

const errCodeNotFound = "Not Found"

// FinanceClient provides methods for fetching current equity prices from the Yahoo Finance API.
// It wraps an HTTP client and appends the configured exchange suffix to every symbol.
type FinanceClient struct {
	baseURL    string
	suffix     string
	httpClient *http.Client
}

// NewFinanceClient creates a new Yahoo Finance client.
//
// Parameters:
//   - baseURL: API root, e.g. "https://query1.finance.yahoo.com"
//   - suffix: Exchange suffix appended to bare symbols, e.g. ".IS" for Borsa Istanbul
//   - timeout: Upper bound for each HTTP request
//
// Returns:
//   - *FinanceClient: A new client instance ready for use
func NewFinanceClient(baseURL, suffix string, timeout time.Duration) *FinanceClient {
	return &FinanceClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		suffix:     suffix,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// QueryQuote fetches the current market price of a symbol.
// The exchange suffix is appended unless the symbol already carries one.
//
// Parameters:
//   - ctx: Cancels the request
//   - symbol: Bare ticker symbol (e.g. "THYAO")
//
// Returns:
//   - decimal.Decimal: The regular market price in the exchange currency
//   - error: Wraps ErrSymbolUnknown, ErrSourceUnavailable or ErrSourceDataInvalid
func (c *FinanceClient) QueryQuote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	quote, err := c.QuerySymbol(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	price, err := decimal.NewFromString(quote.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: price %q for %s", apperrors.ErrSourceDataInvalid, quote.Price, quote.Symbol)
	}
	return price, nil
}

// QuerySymbol fetches the chart metadata of a symbol and returns it as a Quote.
// The method requests a single day of data since only the meta block is read.
func (c *FinanceClient) QuerySymbol(ctx context.Context, symbol string) (Quote, error) {
	yahooSymbol := c.yahooSymbol(symbol)
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=1d", c.baseURL, url.PathEscape(yahooSymbol))

	result, err := c.queryYahoo(ctx, u)
	if err != nil {
		return Quote{}, fmt.Errorf("quote %s: %w", yahooSymbol, err)
	}
	if len(result.Chart.Result) == 0 {
		return Quote{}, fmt.Errorf("quote %s: %w: no results returned", yahooSymbol, apperrors.ErrSymbolUnknown)
	}

	meta := result.Chart.Result[0].Meta
	if meta.RegularMarketPrice == "" {
		return Quote{}, fmt.Errorf("quote %s: %w: regularMarketPrice missing", yahooSymbol, apperrors.ErrSourceDataInvalid)
	}

	return Quote{
		Symbol:     meta.Symbol,
		Currency:   meta.Currency,
		Price:      meta.RegularMarketPrice.String(),
		MarketTime: time.Unix(meta.RegularMarketTime, 0).UTC(),
	}, nil
}

func (c *FinanceClient) yahooSymbol(symbol string) string {
	if c.suffix == "" || strings.Contains(symbol, ".") {
		return symbol
	}
	return symbol + c.suffix
}

// queryYahoo is an internal helper that executes HTTP requests to Yahoo Finance API.
// This method handles the common logic for making requests, reading responses,
// parsing JSON, and checking for API errors.
//
// The method sets required headers:
//   - User-Agent: Mimics a browser to avoid API blocking
//   - Accept: Requests JSON response format
func (c *FinanceClient) queryYahoo(ctx context.Context, u string) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", apperrors.ErrSourceUnavailable, err)
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", apperrors.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", apperrors.ErrSourceUnavailable, err)
	}

	var response Response
	decodeErr := json.Unmarshal(data, &response)

	if response.Chart.Error != nil {
		if response.Chart.Error.Code == errCodeNotFound {
			return response, fmt.Errorf("%w: %s", apperrors.ErrSymbolUnknown, response.Chart.Error.Description)
		}
		return response, fmt.Errorf("%w: yahoo error: %s", apperrors.ErrSourceUnavailable, response.Chart.Error.Description)
	}
	if resp.StatusCode == http.StatusNotFound {
		return Response{}, fmt.Errorf("%w: status %d", apperrors.ErrSymbolUnknown, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return Response{}, fmt.Errorf("%w: status %d", apperrors.ErrSourceUnavailable, resp.StatusCode)
	}
	if decodeErr != nil {
		return Response{}, fmt.Errorf("%w: %v", apperrors.ErrSourceDataInvalid, decodeErr)
	}

	return response, nil
}
