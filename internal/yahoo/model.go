package yahoo

import (
	"encoding/json"
	"time"
)

// Response represents the raw JSON response structure from the Yahoo Finance chart API.
// Only the fields needed to read the current market price are mapped.
//
// The structure includes:
//   - Chart.Result: Array of result objects (typically contains one element)
//   - Chart.Result[].Meta: Symbol metadata and the live market price
//   - Chart.Error: Optional error object from Yahoo API
type Response struct {
	Chart Chart `json:"chart"`
}

// Chart is the top-level "chart" object of a Yahoo response.
type Chart struct {
	Result []Result `json:"result"`
	Error  *Error   `json:"error"`
}

// Result is a single instrument entry in a chart response.
type Result struct {
	Meta Meta `json:"meta"`
}

// Meta carries instrument metadata. RegularMarketPrice is kept as a json.Number
// so it converts to decimal without a float round trip.
type Meta struct {
	Currency           string      `json:"currency"`
	Symbol             string      `json:"symbol"`
	ExchangeName       string      `json:"exchangeName"`
	RegularMarketPrice json.Number `json:"regularMarketPrice"`
	RegularMarketTime  int64       `json:"regularMarketTime"`
}

// Error is the error object Yahoo embeds in the chart response.
// Code is "Not Found" for unknown or delisted symbols.
type Error struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Quote is the parsed current price of an instrument.
//
// Fields:
//   - Symbol: Yahoo symbol including any exchange suffix (e.g. "THYAO.IS")
//   - Currency: Currency the price is quoted in
//   - Price: Last regular market price
//   - MarketTime: Time of the last regular market trade
type Quote struct {
	Symbol     string
	Currency   string
	Price      string
	MarketTime time.Time
}
