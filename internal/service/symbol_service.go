package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/binance"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/database"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/price"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/repository"
)

// ExchangeLister lists the trading pairs of a crypto exchange.
type ExchangeLister interface {
	ExchangeInfo(ctx context.Context) ([]binance.ExchangeSymbol, error)
}

// cryptoQuoteAssets are the quote currencies a base asset must trade against
// to be listed.
var cryptoQuoteAssets = map[string]bool{"USDT": true, "TRY": true}

// SymbolService maintains the catalog of symbols positions may reference.
type SymbolService struct {
	symbolRepo *repository.SymbolRepository
	exchange   ExchangeLister
	bistSeed   []byte
}

// NewSymbolService creates a new SymbolService. exchange may be nil, in which
// case only the bundled equity list is seeded.
func NewSymbolService(symbolRepo *repository.SymbolRepository, exchange ExchangeLister) *SymbolService {
	return &SymbolService{
		symbolRepo: symbolRepo,
		exchange:   exchange,
		bistSeed:   database.BISTSeed(),
	}
}

// Seed loads the bundled equity list and the exchange's crypto listing into
// the catalog. Both are upserts, so symbols that disappear upstream stay
// listed and existing positions keep resolving. Equities are stored even when
// the exchange cannot be reached.
func (s *SymbolService) Seed(ctx context.Context) error {
	var errs []error

	n, err := s.seedEquities(ctx)
	if err != nil {
		errs = append(errs, err)
	} else {
		log.Info().Int("count", n).Msg("Seeded equity symbols")
	}

	if s.exchange != nil {
		n, err := s.seedCrypto(ctx)
		if err != nil {
			errs = append(errs, err)
		} else {
			log.Info().Int("count", n).Msg("Seeded crypto symbols")
		}
	}

	return errors.Join(errs...)
}

func (s *SymbolService) seedEquities(ctx context.Context) (int, error) {
	var stocks []model.Symbol
	if err := json.Unmarshal(s.bistSeed, &stocks); err != nil {
		return 0, fmt.Errorf("failed to parse equity seed: %w", err)
	}

	symbols := make([]model.Symbol, 0, len(stocks))
	for _, st := range stocks {
		sym := price.NormalizeSymbol(st.Symbol)
		if sym == "" {
			continue
		}
		symbols = append(symbols, model.Symbol{
			AssetClass: model.AssetClassEquity,
			Symbol:     sym,
			Name:       st.Name,
			LogoURL:    st.LogoURL,
			Source:     model.SymbolSourceBIST,
		})
	}

	if err := s.symbolRepo.UpsertSymbols(ctx, symbols); err != nil {
		return 0, err
	}
	return len(symbols), nil
}

func (s *SymbolService) seedCrypto(ctx context.Context) (int, error) {
	pairs, err := s.exchange.ExchangeInfo(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list crypto symbols: %w", err)
	}

	seen := make(map[string]struct{})
	symbols := []model.Symbol{}
	for _, pair := range pairs {
		if !pair.Trading() || !cryptoQuoteAssets[pair.QuoteAsset] {
			continue
		}
		base := price.NormalizeSymbol(pair.BaseAsset)
		if _, ok := seen[base]; ok || base == "" {
			continue
		}
		seen[base] = struct{}{}
		symbols = append(symbols, model.Symbol{
			AssetClass: model.AssetClassCrypto,
			Symbol:     base,
			Source:     model.SymbolSourceBinance,
		})
	}

	if err := s.symbolRepo.UpsertSymbols(ctx, symbols); err != nil {
		return 0, err
	}
	return len(symbols), nil
}

// List returns the catalog of an asset class ordered by symbol.
func (s *SymbolService) List(ctx context.Context, class model.AssetClass) ([]model.Symbol, error) {
	return s.symbolRepo.ListSymbols(ctx, class)
}

// Search returns catalog entries whose symbol contains query, case-insensitively.
func (s *SymbolService) Search(ctx context.Context, class model.AssetClass, query string) ([]model.Symbol, error) {
	q := price.NormalizeSymbol(query)
	if q == "" {
		return nil, apperrors.ErrInvalidSymbol
	}
	return s.symbolRepo.SearchSymbols(ctx, class, q)
}

// CheckListed returns apperrors.ErrSymbolNotListed when symbol is not in the
// catalog of class. A class with an empty catalog, as after a failed seed,
// accepts every symbol.
func (s *SymbolService) CheckListed(ctx context.Context, class model.AssetClass, symbol string) error {
	ok, err := s.symbolRepo.SymbolExists(ctx, class, price.NormalizeSymbol(symbol))
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	n, err := s.symbolRepo.CountSymbols(ctx, class)
	if err != nil {
		return err
	}
	if n == 0 {
		log.Warn().Str("asset_class", string(class)).Str("symbol", symbol).Msg("symbol catalog empty, accepting unchecked symbol")
		return nil
	}
	return fmt.Errorf("%w: %s", apperrors.ErrSymbolNotListed, symbol)
}
