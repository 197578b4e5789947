package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/api/request"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/price"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/repository"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/validation"
)

// Refresher revalues an owner and pushes the result to their subscribers.
type Refresher interface {
	RefreshOwner(ctx context.Context, ownerID string) error
}

// SymbolCatalog decides whether a symbol may be held in a portfolio of class.
type SymbolCatalog interface {
	CheckListed(ctx context.Context, class model.AssetClass, symbol string) error
}

// PortfolioService handles portfolio and position mutations.
// Every successful mutation synchronously triggers a refresh for the owner so
// connected clients see the change without waiting for the next scheduled pass.
// Portfolios and items owned by someone else are reported as not found.
type PortfolioService struct {
	portfolioRepo *repository.PortfolioRepository
	refresher     Refresher
	catalog       SymbolCatalog
	now           func() time.Time
}

// NewPortfolioService creates a new PortfolioService.
func NewPortfolioService(portfolioRepo *repository.PortfolioRepository, refresher Refresher) *PortfolioService {
	return &PortfolioService{
		portfolioRepo: portfolioRepo,
		refresher:     refresher,
		now:           time.Now,
	}
}

// WithCatalog restricts new positions to symbols listed in catalog.
func (s *PortfolioService) WithCatalog(catalog SymbolCatalog) *PortfolioService {
	s.catalog = catalog
	return s
}

// GetPortfolios retrieves every portfolio of the owner with positions populated.
func (s *PortfolioService) GetPortfolios(ctx context.Context, ownerID string) ([]model.Portfolio, error) {
	return s.portfolioRepo.GetPortfolios(ctx, ownerID)
}

// CreatePortfolio creates an empty portfolio of the given asset class.
//
// Parameters:
//   - ctx: Context for the operation
//   - ownerID: The authenticated owner
//   - req: CreatePortfolioRequest carrying the asset class
//
// Returns the created portfolio, or apperrors.ErrInvalidAssetClass.
func (s *PortfolioService) CreatePortfolio(ctx context.Context, ownerID string, req request.CreatePortfolioRequest) (*model.Portfolio, error) {
	class, err := model.ParseAssetClass(req.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidAssetClass, err)
	}

	portfolio := &model.Portfolio{
		ID:         uuid.New().String(),
		OwnerID:    ownerID,
		AssetClass: class,
		CreatedAt:  s.now().UTC(),
		Positions:  []model.Position{},
	}

	if err := s.portfolioRepo.InsertPortfolio(ctx, *portfolio); err != nil {
		return nil, fmt.Errorf("failed to create portfolio: %w", err)
	}

	s.refresh(ctx, ownerID)
	return portfolio, nil
}

// DeletePortfolio removes a portfolio and all of its positions.
func (s *PortfolioService) DeletePortfolio(ctx context.Context, ownerID, portfolioID string) error {
	if _, err := s.ownedPortfolio(ctx, ownerID, portfolioID); err != nil {
		return err
	}

	if err := s.portfolioRepo.DeletePortfolio(ctx, portfolioID); err != nil {
		return err
	}

	s.refresh(ctx, ownerID)
	return nil
}

// AddItem adds a position to a portfolio. The symbol is normalised and the
// position inherits the portfolio's asset class. With a catalog configured,
// unlisted symbols fail with apperrors.ErrSymbolNotListed.
func (s *PortfolioService) AddItem(ctx context.Context, ownerID, portfolioID string, req request.CreateItemRequest) (*model.Position, error) {
	portfolio, err := s.ownedPortfolio(ctx, ownerID, portfolioID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	acquiredAt := now
	if req.PurchaseDate != "" {
		if acquiredAt, err = validation.ParseDate(req.PurchaseDate); err != nil {
			return nil, err
		}
	}

	symbol := price.NormalizeSymbol(req.Symbol)
	if s.catalog != nil {
		if err := s.catalog.CheckListed(ctx, portfolio.AssetClass, symbol); err != nil {
			return nil, err
		}
	}

	pos := &model.Position{
		ID:               uuid.New().String(),
		PortfolioID:      portfolio.ID,
		Symbol:           symbol,
		AssetClass:       portfolio.AssetClass,
		Quantity:         req.Quantity,
		CostBasisPerUnit: req.BuyPrice,
		AcquiredAt:       acquiredAt,
	}

	if err := s.portfolioRepo.InsertItem(ctx, *pos, now); err != nil {
		return nil, fmt.Errorf("failed to add portfolio item: %w", err)
	}

	s.refresh(ctx, ownerID)
	return pos, nil
}

// UpdateItem applies the provided fields of req to a position.
// Omitted fields remain unchanged.
func (s *PortfolioService) UpdateItem(ctx context.Context, ownerID, itemID string, req request.UpdateItemRequest) (*model.Position, error) {
	pos, err := s.ownedItem(ctx, ownerID, itemID)
	if err != nil {
		return nil, err
	}

	if req.Quantity != nil {
		pos.Quantity = *req.Quantity
	}
	if req.BuyPrice != nil {
		pos.CostBasisPerUnit = *req.BuyPrice
	}
	if req.PurchaseDate != nil {
		if pos.AcquiredAt, err = validation.ParseDate(*req.PurchaseDate); err != nil {
			return nil, err
		}
	}

	if err := s.portfolioRepo.UpdateItem(ctx, pos); err != nil {
		return nil, err
	}

	s.refresh(ctx, ownerID)
	return &pos, nil
}

// DeleteItem removes a single position.
func (s *PortfolioService) DeleteItem(ctx context.Context, ownerID, itemID string) error {
	if _, err := s.ownedItem(ctx, ownerID, itemID); err != nil {
		return err
	}

	if err := s.portfolioRepo.DeleteItem(ctx, itemID); err != nil {
		return err
	}

	s.refresh(ctx, ownerID)
	return nil
}

func (s *PortfolioService) ownedPortfolio(ctx context.Context, ownerID, portfolioID string) (model.Portfolio, error) {
	portfolio, err := s.portfolioRepo.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return model.Portfolio{}, err
	}
	if portfolio.OwnerID != ownerID {
		return model.Portfolio{}, apperrors.ErrPortfolioNotFound
	}
	return portfolio, nil
}

func (s *PortfolioService) ownedItem(ctx context.Context, ownerID, itemID string) (model.Position, error) {
	pos, owner, err := s.portfolioRepo.GetItem(ctx, itemID)
	if err != nil {
		return model.Position{}, err
	}
	if owner != ownerID {
		return model.Position{}, apperrors.ErrItemNotFound
	}
	return pos, nil
}

// refresh pushes a fresh valuation after a committed mutation. The mutation
// already succeeded, so a failed refresh is only logged; the next scheduled
// pass delivers the update instead.
func (s *PortfolioService) refresh(ctx context.Context, ownerID string) {
	if s.refresher == nil {
		return
	}
	if err := s.refresher.RefreshOwner(context.WithoutCancel(ctx), ownerID); err != nil {
		log.Warn().Err(err).Str("owner", ownerID).Msg("post-mutation refresh failed")
	}
}
