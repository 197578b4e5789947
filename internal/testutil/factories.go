package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/repository"
)

// baseTime anchors builder timestamps so creation order is deterministic.
var baseTime = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

// PortfolioBuilder provides a fluent interface for creating test portfolios.
//
// Example usage:
//
//	// Simple creation with defaults
//	portfolio := testutil.NewPortfolio().Build(t, db)
//
//	// Customized portfolio
//	portfolio := testutil.NewPortfolio().
//	    WithOwner("owner-1").
//	    Crypto().
//	    Build(t, db)
type PortfolioBuilder struct {
	ID         string
	OwnerID    string
	AssetClass model.AssetClass
	CreatedAt  time.Time
}

// NewPortfolio creates a PortfolioBuilder with sensible defaults: a random
// owner and an equity asset class.
func NewPortfolio() *PortfolioBuilder {
	return &PortfolioBuilder{
		ID:         MakeID(),
		OwnerID:    MakeOwnerID(),
		AssetClass: model.AssetClassEquity,
		CreatedAt:  baseTime,
	}
}

// WithID sets a custom ID.
func (b *PortfolioBuilder) WithID(id string) *PortfolioBuilder {
	b.ID = id
	return b
}

// WithOwner sets the owning account.
func (b *PortfolioBuilder) WithOwner(ownerID string) *PortfolioBuilder {
	b.OwnerID = ownerID
	return b
}

// Crypto makes the portfolio a crypto portfolio.
func (b *PortfolioBuilder) Crypto() *PortfolioBuilder {
	b.AssetClass = model.AssetClassCrypto
	return b
}

// CreatedAtTime sets the creation time, which orders an owner's portfolios.
func (b *PortfolioBuilder) CreatedAtTime(t time.Time) *PortfolioBuilder {
	b.CreatedAt = t
	return b
}

// Build creates the portfolio in the database and returns it.
func (b *PortfolioBuilder) Build(t *testing.T, db *sql.DB) model.Portfolio {
	t.Helper()

	p := model.Portfolio{
		ID:         b.ID,
		OwnerID:    b.OwnerID,
		AssetClass: b.AssetClass,
		CreatedAt:  b.CreatedAt,
		Positions:  []model.Position{},
	}

	if err := repository.NewPortfolioRepository(db).InsertPortfolio(context.Background(), p); err != nil {
		t.Fatalf("Failed to create test portfolio: %v", err)
	}

	return p
}

// Convenience functions

// CreatePortfolio creates an equity portfolio for the owner.
//
// Example usage:
//
//	portfolio := testutil.CreatePortfolio(t, db, "owner-1")
func CreatePortfolio(t *testing.T, db *sql.DB, ownerID string) model.Portfolio {
	t.Helper()
	return NewPortfolio().WithOwner(ownerID).Build(t, db)
}

// ItemBuilder provides a fluent interface for creating test positions.
//
// Example usage:
//
//	item := testutil.NewItem(portfolio).
//	    WithSymbol("THYAO").
//	    WithQuantity("10").
//	    WithBuyPrice("100").
//	    Build(t, db)
type ItemBuilder struct {
	ID               string
	PortfolioID      string
	AssetClass       model.AssetClass
	Symbol           string
	Quantity         decimal.Decimal
	CostBasisPerUnit decimal.Decimal
	AcquiredAt       time.Time
	CreatedAt        time.Time
}

// NewItem creates an ItemBuilder for a position inside p with defaults of one
// unit bought at 100.
func NewItem(p model.Portfolio) *ItemBuilder {
	return &ItemBuilder{
		ID:               MakeID(),
		PortfolioID:      p.ID,
		AssetClass:       p.AssetClass,
		Symbol:           MakeSymbol("TST"),
		Quantity:         decimal.NewFromInt(1),
		CostBasisPerUnit: decimal.NewFromInt(100),
		AcquiredAt:       baseTime,
		CreatedAt:        time.Now().UTC(),
	}
}

// WithSymbol sets the symbol.
func (b *ItemBuilder) WithSymbol(symbol string) *ItemBuilder {
	b.Symbol = symbol
	return b
}

// WithQuantity sets the quantity from a decimal string.
func (b *ItemBuilder) WithQuantity(qty string) *ItemBuilder {
	b.Quantity = decimal.RequireFromString(qty)
	return b
}

// WithBuyPrice sets the cost basis per unit from a decimal string.
func (b *ItemBuilder) WithBuyPrice(price string) *ItemBuilder {
	b.CostBasisPerUnit = decimal.RequireFromString(price)
	return b
}

// CreatedAtTime sets the row creation time, which orders positions.
func (b *ItemBuilder) CreatedAtTime(t time.Time) *ItemBuilder {
	b.CreatedAt = t
	return b
}

// Build creates the position in the database and returns it.
func (b *ItemBuilder) Build(t *testing.T, db *sql.DB) model.Position {
	t.Helper()

	pos := model.Position{
		ID:               b.ID,
		PortfolioID:      b.PortfolioID,
		Symbol:           b.Symbol,
		AssetClass:       b.AssetClass,
		Quantity:         b.Quantity,
		CostBasisPerUnit: b.CostBasisPerUnit,
		AcquiredAt:       b.AcquiredAt,
	}

	if err := repository.NewPortfolioRepository(db).InsertItem(context.Background(), pos, b.CreatedAt); err != nil {
		t.Fatalf("Failed to create test portfolio item: %v", err)
	}

	return pos
}
