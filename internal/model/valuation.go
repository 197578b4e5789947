package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemStatus tells whether an item's price-dependent fields could be computed.
type ItemStatus string

const (
	ItemStatusOK          ItemStatus = "ok"
	ItemStatusUnavailable ItemStatus = "unavailable"
)

// ItemValuation is the current value of one position.
//
// When Status is ItemStatusUnavailable the price-dependent fields are null and
// the item is excluded from every portfolio total.
type ItemValuation struct {
	PositionID       string              `json:"id"`
	Symbol           string              `json:"symbol"`
	Quantity         decimal.Decimal     `json:"quantity"`
	CostBasisPerUnit decimal.Decimal     `json:"buyPrice"`
	AcquiredAt       time.Time           `json:"purchaseDate"`
	CostBasis        decimal.Decimal     `json:"costBasis"`
	CurrentPrice     decimal.NullDecimal `json:"currentPrice"`
	MarketValue      decimal.NullDecimal `json:"totalValue"`
	Profit           decimal.NullDecimal `json:"profit"`
	ProfitPct        decimal.NullDecimal `json:"profitPercentage"`
	Status           ItemStatus          `json:"status"`
	Reason           string              `json:"reason,omitempty"`
}

// Available reports whether the item contributed to the portfolio totals.
func (i ItemValuation) Available() bool {
	return i.Status == ItemStatusOK
}

// PortfolioValuation aggregates the item valuations of one portfolio.
// Treat it as immutable once handed to the broadcast channel.
type PortfolioValuation struct {
	PortfolioID      string          `json:"id"`
	AssetClass       AssetClass      `json:"type"`
	TotalValue       decimal.Decimal `json:"totalValue"`
	TotalCost        decimal.Decimal `json:"totalInvestment"`
	TotalProfit      decimal.Decimal `json:"totalProfit"`
	TotalProfitPct   decimal.Decimal `json:"profitPercentage"`
	UnavailableCount int             `json:"unavailableCount"`
	Items            []ItemValuation `json:"items"`
}
