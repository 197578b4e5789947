package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteOutcome tags the result of a single price fetch.
type QuoteOutcome string

const (
	OutcomeOK          QuoteOutcome = "ok"
	OutcomeNotFound    QuoteOutcome = "not_found"
	OutcomeSourceError QuoteOutcome = "source_error"
)

// PriceQuote is a single price observation for a symbol, already normalised to
// the local currency. It is created per fetch and never cached.
//
// Value is only meaningful when Outcome is OutcomeOK; Reason explains any other outcome.
type PriceQuote struct {
	Symbol     string          `json:"symbol"`
	AssetClass AssetClass      `json:"assetClass"`
	Value      decimal.Decimal `json:"value"`
	FetchedAt  time.Time       `json:"fetchedAt"`
	Outcome    QuoteOutcome    `json:"outcome"`
	Reason     string          `json:"reason,omitempty"`
}

// OK reports whether the quote carries a usable price.
func (q PriceQuote) OK() bool {
	return q.Outcome == OutcomeOK
}
