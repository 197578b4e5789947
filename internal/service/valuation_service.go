package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/price"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/valuation"
)

// PortfolioStore loads an owner's portfolios with positions populated.
type PortfolioStore interface {
	GetPortfolios(ctx context.Context, ownerID string) ([]model.Portfolio, error)
	GetPortfolioWithPositions(ctx context.Context, portfolioID string) (model.Portfolio, error)
}

// PriceProvider returns one quote per distinct requested symbol.
type PriceProvider interface {
	GetPrices(ctx context.Context, symbols []string, class model.AssetClass) map[string]model.PriceQuote
}

// Publisher delivers a payload to every live connection of an owner.
type Publisher interface {
	Publish(ctx context.Context, ownerID string, payload any) error
}

// SnapshotSink receives every successfully computed valuation set.
type SnapshotSink interface {
	PublishSnapshot(ctx context.Context, ownerID string, valuations []model.PortfolioValuation) error
}

// ValuationService runs valuation passes for one owner at a time and pushes
// the result to the owner's group. It holds no per-owner state, so passes for
// different owners (or overlapping passes for the same owner) may run concurrently.
type ValuationService struct {
	store     PortfolioStore
	prices    PriceProvider
	publisher Publisher
	sink      SnapshotSink
}

// NewValuationService creates a new ValuationService with the provided collaborators.
func NewValuationService(store PortfolioStore, prices PriceProvider, publisher Publisher) *ValuationService {
	return &ValuationService{
		store:     store,
		prices:    prices,
		publisher: publisher,
	}
}

// WithSnapshotSink makes RefreshOwner forward every successful pass to sink.
func (s *ValuationService) WithSnapshotSink(sink SnapshotSink) *ValuationService {
	s.sink = sink
	return s
}

// ComputeValuations values every portfolio of ownerID against live prices.
// Prices are fetched once per asset class for the distinct symbols across all
// portfolios. Returns apperrors.ErrNoPortfolios when the owner has none.
func (s *ValuationService) ComputeValuations(ctx context.Context, ownerID string) ([]model.PortfolioValuation, error) {
	portfolios, err := s.store.GetPortfolios(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolios: %w", err)
	}
	if len(portfolios) == 0 {
		return nil, apperrors.ErrNoPortfolios
	}
	return s.value(ctx, ownerID, portfolios), nil
}

// ComputePortfolioValuation values a single portfolio of ownerID, fetching
// prices only for its own symbols. Another owner's portfolio is reported as
// apperrors.ErrPortfolioNotFound.
func (s *ValuationService) ComputePortfolioValuation(ctx context.Context, ownerID, portfolioID string) (model.PortfolioValuation, error) {
	p, err := s.store.GetPortfolioWithPositions(ctx, portfolioID)
	if err != nil {
		return model.PortfolioValuation{}, err
	}
	if p.OwnerID != ownerID {
		return model.PortfolioValuation{}, apperrors.ErrPortfolioNotFound
	}
	return s.value(ctx, ownerID, []model.Portfolio{p})[0], nil
}

func (s *ValuationService) value(ctx context.Context, ownerID string, portfolios []model.Portfolio) []model.PortfolioValuation {
	symbolsByClass := make(map[model.AssetClass][]string)
	for _, p := range portfolios {
		for _, pos := range p.Positions {
			symbolsByClass[pos.AssetClass] = append(symbolsByClass[pos.AssetClass], pos.Symbol)
		}
	}

	quotesByClass := make(map[model.AssetClass]map[string]model.PriceQuote, len(symbolsByClass))
	for class, symbols := range symbolsByClass {
		quotesByClass[class] = s.prices.GetPrices(ctx, symbols, class)
	}

	valuations := make([]model.PortfolioValuation, 0, len(portfolios))
	for _, p := range portfolios {
		pv := valuation.Portfolio(p, quotesFor(p, quotesByClass))
		for _, item := range pv.Items {
			if !item.Available() {
				log.Warn().
					Str("owner", ownerID).
					Str("portfolio", p.ID).
					Str("symbol", item.Symbol).
					Str("reason", item.Reason).
					Msg("price unavailable, item excluded from totals")
			}
		}
		valuations = append(valuations, pv)
	}
	return valuations
}

// quotesFor picks the quotes of p's positions from their asset class maps,
// keyed by the position's stored symbol.
func quotesFor(p model.Portfolio, quotesByClass map[model.AssetClass]map[string]model.PriceQuote) map[string]model.PriceQuote {
	quotes := make(map[string]model.PriceQuote, len(p.Positions))
	for _, pos := range p.Positions {
		if q, ok := quotesByClass[pos.AssetClass][price.NormalizeSymbol(pos.Symbol)]; ok {
			quotes[pos.Symbol] = q
		}
	}
	return quotes
}

// RefreshOwner computes the owner's valuations and publishes them as an
// envelope. A failed computation still publishes a failure envelope so
// subscribers learn about it; the computation error is returned. An owner
// without portfolios gets a failure envelope and no error.
func (s *ValuationService) RefreshOwner(ctx context.Context, ownerID string) error {
	valuations, err := s.ComputeValuations(ctx, ownerID)
	switch {
	case errors.Is(err, apperrors.ErrNoPortfolios):
		return s.publish(ctx, ownerID, model.Fail[[]model.PortfolioValuation](err.Error()))
	case err != nil:
		if pubErr := s.publish(ctx, ownerID, model.Fail[[]model.PortfolioValuation]("failed to compute valuations")); pubErr != nil {
			log.Warn().Err(pubErr).Str("owner", ownerID).Msg("failed to publish failure envelope")
		}
		return err
	}

	if err := s.publish(ctx, ownerID, model.Ok(valuations, "")); err != nil {
		return err
	}

	if s.sink != nil {
		if err := s.sink.PublishSnapshot(ctx, ownerID, valuations); err != nil {
			log.Warn().Err(err).Str("owner", ownerID).Msg("failed to emit valuation snapshot")
		}
	}
	return nil
}

func (s *ValuationService) publish(ctx context.Context, ownerID string, update model.ValuationUpdate) error {
	if err := s.publisher.Publish(ctx, ownerID, update); err != nil {
		return fmt.Errorf("%w: publish to %s: %v", apperrors.ErrGroupOperationFailed, ownerID, err)
	}
	return nil
}
