package price

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/model"
)

// TickerClient is the subset of the Binance client the crypto source uses.
type TickerClient interface {
	TickerPrice(ctx context.Context, pair string) (decimal.Decimal, error)
	TickerPrices(ctx context.Context, pairs []string) (map[string]decimal.Decimal, error)
}

// QuoteClient is the subset of the Yahoo client the equity source uses.
type QuoteClient interface {
	QueryQuote(ctx context.Context, symbol string) (decimal.Decimal, error)
}

var errRateUnavailable = errors.New("exchange rate unavailable")

// CryptoSource prices crypto assets through their quote currency pair and
// converts them to the local currency, e.g. BTC → BTCUSDT × USDTTRY.
type CryptoSource struct {
	client        TickerClient
	quoteCurrency string
	localCurrency string
}

// NewCryptoSource creates a CryptoSource quoting in quoteCurrency (e.g. "USDT")
// and converting to localCurrency (e.g. "TRY").
func NewCryptoSource(client TickerClient, quoteCurrency, localCurrency string) *CryptoSource {
	return &CryptoSource{
		client:        client,
		quoteCurrency: NormalizeSymbol(quoteCurrency),
		localCurrency: NormalizeSymbol(localCurrency),
	}
}

// AssetClass implements Source.
func (s *CryptoSource) AssetClass() model.AssetClass {
	return model.AssetClassCrypto
}

// FetchPrices implements Source. The conversion rate is fetched once per call
// and before any asset price; without a usable rate every symbol fails.
func (s *CryptoSource) FetchPrices(ctx context.Context, symbols []string) map[string]Result {
	results := make(map[string]Result, len(symbols))

	rate, err := s.rate(ctx)
	if err != nil {
		log.Warn().Err(err).Str("pair", s.quoteCurrency+s.localCurrency).Msg("crypto conversion rate unavailable")
		for _, sym := range symbols {
			results[sym] = Result{Err: err}
		}
		return results
	}

	pairs := make([]string, len(symbols))
	for i, sym := range symbols {
		pairs[i] = sym + s.quoteCurrency
	}

	prices, err := s.client.TickerPrices(ctx, pairs)
	if err != nil {
		log.Debug().Err(err).Int("symbols", len(symbols)).Msg("batch ticker failed, falling back to single lookups")
		for i, sym := range symbols {
			p, err := s.client.TickerPrice(ctx, pairs[i])
			if err != nil {
				results[sym] = Result{Err: err}
				continue
			}
			results[sym] = Result{Value: p.Mul(rate)}
		}
		return results
	}

	for i, sym := range symbols {
		p, ok := prices[pairs[i]]
		if !ok {
			results[sym] = Result{Err: fmt.Errorf("%w: %s", apperrors.ErrSymbolUnknown, pairs[i])}
			continue
		}
		results[sym] = Result{Value: p.Mul(rate)}
	}
	return results
}

func (s *CryptoSource) rate(ctx context.Context) (decimal.Decimal, error) {
	if s.quoteCurrency == s.localCurrency {
		return decimal.NewFromInt(1), nil
	}
	rate, err := s.client.TickerPrice(ctx, s.quoteCurrency+s.localCurrency)
	if err != nil {
		// An unknown rate pair is a configuration problem, not an unknown asset.
		return decimal.Zero, fmt.Errorf("%w: %w: %v", apperrors.ErrSourceUnavailable, errRateUnavailable, err)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %w: rate %s", apperrors.ErrSourceDataInvalid, errRateUnavailable, rate)
	}
	return rate, nil
}

// EquitySource prices equities one symbol at a time with bounded concurrency.
// The client is expected to return prices already in the local currency.
type EquitySource struct {
	client      QuoteClient
	concurrency int
}

// NewEquitySource creates an EquitySource running at most concurrency fetches at once.
func NewEquitySource(client QuoteClient, concurrency int) *EquitySource {
	if concurrency < 1 {
		concurrency = 1
	}
	return &EquitySource{client: client, concurrency: concurrency}
}

// AssetClass implements Source.
func (s *EquitySource) AssetClass() model.AssetClass {
	return model.AssetClassEquity
}

// FetchPrices implements Source. A failing symbol never cancels the others.
func (s *EquitySource) FetchPrices(ctx context.Context, symbols []string) map[string]Result {
	var (
		mu      sync.Mutex
		results = make(map[string]Result, len(symbols))
	)

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, sym := range symbols {
		g.Go(func() error {
			p, err := s.client.QueryQuote(ctx, sym)
			mu.Lock()
			results[sym] = Result{Value: p, Err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}
