package testutil

import (
	"context"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/binance"
)

// MockExchange is a service.ExchangeLister returning a fixed listing or error.
type MockExchange struct {
	Pairs []binance.ExchangeSymbol
	Err   error
}

// NewMockExchange lists base/USDT pairs in TRADING status for every base asset.
func NewMockExchange(bases ...string) *MockExchange {
	m := &MockExchange{}
	for _, b := range bases {
		m.WithPair(b, "USDT", "TRADING")
	}
	return m
}

// WithPair adds a pair with the given quote asset and status.
func (m *MockExchange) WithPair(base, quote, status string) *MockExchange {
	m.Pairs = append(m.Pairs, binance.ExchangeSymbol{
		Symbol:     base + quote,
		Status:     status,
		BaseAsset:  base,
		QuoteAsset: quote,
	})
	return m
}

// ExchangeInfo implements service.ExchangeLister.
func (m *MockExchange) ExchangeInfo(_ context.Context) ([]binance.ExchangeSymbol, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Pairs, nil
}
