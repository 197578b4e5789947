package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AssetClass determines which price source and currency path a position uses.
type AssetClass string

const (
	AssetClassEquity AssetClass = "stock"
	AssetClassCrypto AssetClass = "crypto"
)

// ParseAssetClass accepts the wire names ("stock", "crypto") case-insensitively,
// plus "equity" as an alias for stock.
func ParseAssetClass(s string) (AssetClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stock", "equity":
		return AssetClassEquity, nil
	case "crypto":
		return AssetClassCrypto, nil
	default:
		return "", fmt.Errorf("unsupported asset class: %q", s)
	}
}

// Valid reports whether the asset class is one of the supported classes.
func (a AssetClass) Valid() bool {
	return a == AssetClassEquity || a == AssetClassCrypto
}

// Portfolio represents a portfolio from the database with its positions loaded.
// A portfolio holds a single asset class.
type Portfolio struct {
	ID         string     `json:"id"`
	OwnerID    string     `json:"ownerId"`
	AssetClass AssetClass `json:"assetClass"`
	CreatedAt  time.Time  `json:"createdAt"`
	Positions  []Position `json:"positions"`
}

// Position represents a single holding inside a portfolio.
// Positions are read-only for the duration of a valuation pass.
type Position struct {
	ID               string          `json:"id"`
	PortfolioID      string          `json:"portfolioId"`
	Symbol           string          `json:"symbol"`
	AssetClass       AssetClass      `json:"assetClass"`
	Quantity         decimal.Decimal `json:"quantity"`
	CostBasisPerUnit decimal.Decimal `json:"costBasisPerUnit"`
	AcquiredAt       time.Time       `json:"acquiredAt"`
}

// Symbols returns the distinct symbols held in the portfolio, in position order.
func (p Portfolio) Symbols() []string {
	seen := make(map[string]struct{}, len(p.Positions))
	symbols := make([]string, 0, len(p.Positions))
	for _, pos := range p.Positions {
		if _, ok := seen[pos.Symbol]; ok {
			continue
		}
		seen[pos.Symbol] = struct{}{}
		symbols = append(symbols, pos.Symbol)
	}
	return symbols
}
