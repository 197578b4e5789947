package request

import "github.com/shopspring/decimal"

// CreatePortfolioRequest represents the request body for creating a portfolio.
// Type is the asset class the portfolio holds: "stock" or "crypto".
type CreatePortfolioRequest struct {
	Type string `json:"type"`
}

// CreateItemRequest represents the request body for adding a position to a portfolio.
// PurchaseDate is optional (YYYY-MM-DD or RFC 3339) and defaults to now.
type CreateItemRequest struct {
	Symbol       string          `json:"symbol"`
	Quantity     decimal.Decimal `json:"quantity"`
	BuyPrice     decimal.Decimal `json:"buyPrice"`
	PurchaseDate string          `json:"purchaseDate"`
}

type UpdateItemRequest struct {
	Quantity     *decimal.Decimal `json:"quantity,omitempty"`
	BuyPrice     *decimal.Decimal `json:"buyPrice,omitempty"`
	PurchaseDate *string          `json:"purchaseDate,omitempty"`
}
