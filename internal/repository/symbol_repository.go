package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/model"
)

// SymbolRepository provides data access methods for the symbol catalog.
type SymbolRepository struct {
	db *sql.DB
}

// NewSymbolRepository creates a new SymbolRepository with the provided database connection.
func NewSymbolRepository(db *sql.DB) *SymbolRepository {
	return &SymbolRepository{db: db}
}

// UpsertSymbols stores symbols in one transaction, replacing the name, logo
// and source of entries that already exist.
func (s *SymbolRepository) UpsertSymbols(ctx context.Context, symbols []model.Symbol) error {
	if len(symbols) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO symbol (asset_class, symbol, name, logo_url, source)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (asset_class, symbol) DO UPDATE SET
			name = excluded.name,
			logo_url = excluded.logo_url,
			source = excluded.source`)
	if err != nil {
		return fmt.Errorf("failed to prepare symbol upsert: %w", err)
	}
	defer stmt.Close()

	for _, sym := range symbols {
		if _, err := stmt.ExecContext(ctx, string(sym.AssetClass), sym.Symbol, sym.Name, sym.LogoURL, sym.Source); err != nil {
			return fmt.Errorf("failed to upsert symbol %s: %w", sym.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit symbols: %w", err)
	}
	return nil
}

// CountSymbols returns the number of catalog entries of an asset class.
func (s *SymbolRepository) CountSymbols(ctx context.Context, class model.AssetClass) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM symbol WHERE asset_class = ?`, string(class)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count symbols: %w", err)
	}
	return n, nil
}

// ListSymbols returns every catalog entry of an asset class ordered by symbol.
func (s *SymbolRepository) ListSymbols(ctx context.Context, class model.AssetClass) ([]model.Symbol, error) {
	return s.querySymbols(ctx, `
		SELECT asset_class, symbol, name, logo_url, source
		FROM symbol
		WHERE asset_class = ?
		ORDER BY symbol
	`, string(class))
}

// SearchSymbols returns entries of an asset class whose symbol contains
// fragment, ordered by symbol. fragment must already be upper case.
func (s *SymbolRepository) SearchSymbols(ctx context.Context, class model.AssetClass, fragment string) ([]model.Symbol, error) {
	return s.querySymbols(ctx, `
		SELECT asset_class, symbol, name, logo_url, source
		FROM symbol
		WHERE asset_class = ? AND instr(symbol, ?) > 0
		ORDER BY symbol
	`, string(class), fragment)
}

// SymbolExists reports whether symbol is listed for the asset class.
func (s *SymbolRepository) SymbolExists(ctx context.Context, class model.AssetClass, symbol string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM symbol WHERE asset_class = ? AND symbol = ?)`,
		string(class), symbol,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to look up symbol: %w", err)
	}
	return exists, nil
}

func (s *SymbolRepository) querySymbols(ctx context.Context, query string, args ...any) ([]model.Symbol, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbol table: %w", err)
	}
	defer rows.Close()

	symbols := []model.Symbol{}
	for rows.Next() {
		var (
			sym   model.Symbol
			class string
		)
		if err := rows.Scan(&class, &sym.Symbol, &sym.Name, &sym.LogoURL, &sym.Source); err != nil {
			return nil, fmt.Errorf("failed to scan symbol table results: %w", err)
		}
		sym.AssetClass = model.AssetClass(class)
		symbols = append(symbols, sym)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbol table: %w", err)
	}
	return symbols, nil
}
