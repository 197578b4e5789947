package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/model"
)

// PortfolioRepository provides data access methods for the portfolio and portfolio_item tables.
// It is the store the valuation pipeline borrows positions from.
type PortfolioRepository struct {
	db *sql.DB
}

// NewPortfolioRepository creates a new PortfolioRepository with the provided database connection.
func NewPortfolioRepository(db *sql.DB) *PortfolioRepository {
	return &PortfolioRepository{db: db}
}

// ListOwnersWithPortfolios returns every distinct owner that has at least one portfolio.
func (s *PortfolioRepository) ListOwnersWithPortfolios(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT owner_id FROM portfolio ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio owners: %w", err)
	}
	defer rows.Close()

	owners := []string{}
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio owner: %w", err)
		}
		owners = append(owners, owner)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolio owners: %w", err)
	}
	return owners, nil
}

// GetPortfolios retrieves all portfolios of an owner with their positions populated.
// Portfolios and positions are returned in creation order.
// Returns an empty slice if the owner has no portfolios.
func (s *PortfolioRepository) GetPortfolios(ctx context.Context, ownerID string) ([]model.Portfolio, error) {
	query := `
		SELECT id, owner_id, asset_class, created_at
		FROM portfolio
		WHERE owner_id = ?
		ORDER BY created_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio table: %w", err)
	}

	portfolios := []model.Portfolio{}
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		portfolios = append(portfolios, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating portfolio table: %w", err)
	}
	rows.Close()

	if err := s.loadPositions(ctx, portfolios); err != nil {
		return nil, err
	}
	return portfolios, nil
}

// GetPortfolioWithPositions retrieves a single portfolio with its positions
// in creation order.
func (s *PortfolioRepository) GetPortfolioWithPositions(ctx context.Context, portfolioID string) (model.Portfolio, error) {
	p, err := s.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return model.Portfolio{}, err
	}
	portfolios := []model.Portfolio{p}
	if err := s.loadPositions(ctx, portfolios); err != nil {
		return model.Portfolio{}, err
	}
	return portfolios[0], nil
}

// loadPositions fills in the positions of every portfolio with one query.
func (s *PortfolioRepository) loadPositions(ctx context.Context, portfolios []model.Portfolio) error {
	if len(portfolios) == 0 {
		return nil
	}

	index := make(map[string]int, len(portfolios))
	args := make([]any, len(portfolios))
	for i, p := range portfolios {
		index[p.ID] = i
		args[i] = p.ID
	}

	//#nosec G202 -- Safe: placeholders are generated programmatically, not from user input
	itemQuery := `
		SELECT id, portfolio_id, symbol, asset_class, quantity, cost_basis_per_unit, acquired_at
		FROM portfolio_item
		WHERE portfolio_id IN (` + placeholders(len(args)) + `)
		ORDER BY created_at, id
	`
	itemRows, err := s.db.QueryContext(ctx, itemQuery, args...)
	if err != nil {
		return fmt.Errorf("failed to query portfolio_item table: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		pos, err := scanPosition(itemRows)
		if err != nil {
			return err
		}
		i := index[pos.PortfolioID]
		portfolios[i].Positions = append(portfolios[i].Positions, pos)
	}
	if err := itemRows.Err(); err != nil {
		return fmt.Errorf("error iterating portfolio_item table: %w", err)
	}
	return nil
}

// GetPortfolio retrieves a single portfolio without its positions.
func (s *PortfolioRepository) GetPortfolio(ctx context.Context, portfolioID string) (model.Portfolio, error) {
	query := `
		SELECT id, owner_id, asset_class, created_at
		FROM portfolio
		WHERE id = ?
	`
	p, err := scanPortfolio(s.db.QueryRowContext(ctx, query, portfolioID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Portfolio{}, apperrors.ErrPortfolioNotFound
	}
	if err != nil {
		return model.Portfolio{}, err
	}
	return p, nil
}

// InsertPortfolio stores a new portfolio. Positions on p are ignored.
func (s *PortfolioRepository) InsertPortfolio(ctx context.Context, p model.Portfolio) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO portfolio (id, owner_id, asset_class, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.OwnerID, string(p.AssetClass), FormatTime(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert portfolio: %w", err)
	}
	return nil
}

// DeletePortfolio removes a portfolio and, through the cascade, its items.
func (s *PortfolioRepository) DeletePortfolio(ctx context.Context, portfolioID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM portfolio WHERE id = ?`, portfolioID)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}
	return expectOneRow(res, apperrors.ErrPortfolioNotFound)
}

// GetItem retrieves a single position together with the owner of its portfolio.
func (s *PortfolioRepository) GetItem(ctx context.Context, itemID string) (model.Position, string, error) {
	query := `
		SELECT i.id, i.portfolio_id, i.symbol, i.asset_class, i.quantity, i.cost_basis_per_unit, i.acquired_at, p.owner_id
		FROM portfolio_item i
		JOIN portfolio p ON p.id = i.portfolio_id
		WHERE i.id = ?
	`
	var (
		pos        model.Position
		class      string
		acquiredAt string
		ownerID    string
	)
	err := s.db.QueryRowContext(ctx, query, itemID).Scan(
		&pos.ID,
		&pos.PortfolioID,
		&pos.Symbol,
		&class,
		&pos.Quantity,
		&pos.CostBasisPerUnit,
		&acquiredAt,
		&ownerID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Position{}, "", apperrors.ErrItemNotFound
	}
	if err != nil {
		return model.Position{}, "", fmt.Errorf("failed to query portfolio item: %w", err)
	}
	pos.AssetClass = model.AssetClass(class)
	if pos.AcquiredAt, err = ParseTime(acquiredAt); err != nil {
		return model.Position{}, "", err
	}
	return pos, ownerID, nil
}

// InsertItem stores a new position. createdAt orders the item within its portfolio.
func (s *PortfolioRepository) InsertItem(ctx context.Context, pos model.Position, createdAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO portfolio_item (id, portfolio_id, symbol, asset_class, quantity, cost_basis_per_unit, acquired_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		pos.ID,
		pos.PortfolioID,
		pos.Symbol,
		string(pos.AssetClass),
		pos.Quantity.String(),
		pos.CostBasisPerUnit.String(),
		FormatTime(pos.AcquiredAt),
		FormatTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert portfolio item: %w", err)
	}
	return nil
}

// UpdateItem overwrites the quantity, cost basis and acquisition date of a position.
func (s *PortfolioRepository) UpdateItem(ctx context.Context, pos model.Position) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE portfolio_item
		SET quantity = ?, cost_basis_per_unit = ?, acquired_at = ?
		WHERE id = ?`,
		pos.Quantity.String(),
		pos.CostBasisPerUnit.String(),
		FormatTime(pos.AcquiredAt),
		pos.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update portfolio item: %w", err)
	}
	return expectOneRow(res, apperrors.ErrItemNotFound)
}

// DeleteItem removes a single position.
func (s *PortfolioRepository) DeleteItem(ctx context.Context, itemID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM portfolio_item WHERE id = ?`, itemID)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio item: %w", err)
	}
	return expectOneRow(res, apperrors.ErrItemNotFound)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPortfolio(row scanner) (model.Portfolio, error) {
	var (
		p         model.Portfolio
		class     string
		createdAt string
	)
	if err := row.Scan(&p.ID, &p.OwnerID, &class, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Portfolio{}, err
		}
		return model.Portfolio{}, fmt.Errorf("failed to scan portfolio table results: %w", err)
	}
	p.AssetClass = model.AssetClass(class)
	created, err := ParseTime(createdAt)
	if err != nil {
		return model.Portfolio{}, err
	}
	p.CreatedAt = created
	return p, nil
}

func scanPosition(row scanner) (model.Position, error) {
	var (
		pos        model.Position
		class      string
		acquiredAt string
	)
	err := row.Scan(
		&pos.ID,
		&pos.PortfolioID,
		&pos.Symbol,
		&class,
		&pos.Quantity,
		&pos.CostBasisPerUnit,
		&acquiredAt,
	)
	if err != nil {
		return model.Position{}, fmt.Errorf("failed to scan portfolio_item table results: %w", err)
	}
	pos.AssetClass = model.AssetClass(class)
	if pos.AcquiredAt, err = ParseTime(acquiredAt); err != nil {
		return model.Position{}, err
	}
	return pos, nil
}

func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
