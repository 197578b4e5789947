// Package price turns symbols into PriceQuotes by routing them to the source
// registered for their asset class. Source failures never escape this package
// as errors: they are classified into the quote's Outcome.
package price

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/model"
)

// Result is the raw outcome of fetching one symbol from a source.
type Result struct {
	Value decimal.Decimal
	Err   error
}

// Source fetches local-currency prices for one asset class.
// FetchPrices must return an entry for every requested symbol; a missing
// entry is treated as not found.
type Source interface {
	AssetClass() model.AssetClass
	FetchPrices(ctx context.Context, symbols []string) map[string]Result
}

// Aggregator is the single entry point for price lookups.
// It holds no cache: every call hits the sources.
type Aggregator struct {
	sources map[model.AssetClass]Source
	now     func() time.Time
}

// NewAggregator creates an Aggregator routing to the given sources.
// A later source for the same asset class replaces an earlier one.
func NewAggregator(sources ...Source) *Aggregator {
	a := &Aggregator{
		sources: make(map[model.AssetClass]Source, len(sources)),
		now:     time.Now,
	}
	for _, s := range sources {
		a.sources[s.AssetClass()] = s
	}
	return a
}

// GetPrice returns a quote for a single symbol.
func (a *Aggregator) GetPrice(ctx context.Context, symbol string, class model.AssetClass) model.PriceQuote {
	normalized := NormalizeSymbol(symbol)
	if normalized == "" {
		return a.quote(normalized, class, Result{Err: fmt.Errorf("%w: %w", apperrors.ErrSymbolUnknown, apperrors.ErrInvalidSymbol)})
	}
	quotes := a.GetPrices(ctx, []string{normalized}, class)
	return quotes[normalized]
}

// GetPrices returns one quote per distinct normalised symbol.
// Symbols are trimmed and upper-cased; empty symbols are dropped.
func (a *Aggregator) GetPrices(ctx context.Context, symbols []string, class model.AssetClass) map[string]model.PriceQuote {
	distinct := NormalizeSymbols(symbols)
	quotes := make(map[string]model.PriceQuote, len(distinct))
	if len(distinct) == 0 {
		return quotes
	}

	source, ok := a.sources[class]
	if !ok {
		reason := fmt.Sprintf("unsupported asset class: %s", class)
		for _, s := range distinct {
			quotes[s] = a.quote(s, class, Result{Err: errors.New(reason)})
		}
		return quotes
	}

	results := source.FetchPrices(ctx, distinct)
	for _, s := range distinct {
		r, ok := results[s]
		if !ok {
			r = Result{Err: fmt.Errorf("%w: no price returned", apperrors.ErrSymbolUnknown)}
		}
		q := a.quote(s, class, r)
		if !q.OK() {
			log.Debug().
				Str("symbol", s).
				Str("assetClass", string(class)).
				Str("outcome", string(q.Outcome)).
				Str("reason", q.Reason).
				Msg("price unavailable")
		}
		quotes[s] = q
	}
	return quotes
}

func (a *Aggregator) quote(symbol string, class model.AssetClass, r Result) model.PriceQuote {
	q := model.PriceQuote{
		Symbol:     symbol,
		AssetClass: class,
		FetchedAt:  a.now().UTC(),
	}
	switch {
	case r.Err == nil && r.Value.IsNegative():
		q.Outcome = model.OutcomeSourceError
		q.Reason = fmt.Sprintf("negative price %s", r.Value)
	case r.Err == nil:
		q.Outcome = model.OutcomeOK
		q.Value = r.Value
	case errors.Is(r.Err, apperrors.ErrSymbolUnknown):
		q.Outcome = model.OutcomeNotFound
		q.Reason = r.Err.Error()
	default:
		q.Outcome = model.OutcomeSourceError
		q.Reason = r.Err.Error()
	}
	return q
}

// NormalizeSymbol trims and upper-cases a symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// NormalizeSymbols normalises symbols and removes empties and duplicates,
// keeping first-seen order.
func NormalizeSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		n := NormalizeSymbol(s)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
