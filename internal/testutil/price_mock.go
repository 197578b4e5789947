package testutil

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/price"
)

// MockPriceSource is a price.Source returning predefined prices and errors.
// Symbols with neither a price nor an error are reported as unknown.
type MockPriceSource struct {
	Class model.AssetClass

	mu     sync.Mutex
	prices map[string]decimal.Decimal
	errs   map[string]error
	calls  [][]string
}

// NewMockPriceSource creates an empty mock source for class.
func NewMockPriceSource(class model.AssetClass) *MockPriceSource {
	return &MockPriceSource{
		Class:  class,
		prices: map[string]decimal.Decimal{},
		errs:   map[string]error{},
	}
}

// WithPrice configures the price returned for symbol.
func (m *MockPriceSource) WithPrice(symbol, value string) *MockPriceSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[symbol] = decimal.RequireFromString(value)
	delete(m.errs, symbol)
	return m
}

// WithError configures the error returned for symbol.
func (m *MockPriceSource) WithError(symbol string, err error) *MockPriceSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[symbol] = err
	delete(m.prices, symbol)
	return m
}

// AssetClass implements price.Source.
func (m *MockPriceSource) AssetClass() model.AssetClass {
	return m.Class
}

// FetchPrices implements price.Source.
func (m *MockPriceSource) FetchPrices(_ context.Context, symbols []string) map[string]price.Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, append([]string(nil), symbols...))
	out := make(map[string]price.Result, len(symbols))
	for _, s := range symbols {
		if err, ok := m.errs[s]; ok {
			out[s] = price.Result{Err: err}
			continue
		}
		if p, ok := m.prices[s]; ok {
			out[s] = price.Result{Value: p}
			continue
		}
		out[s] = price.Result{Err: apperrors.ErrSymbolUnknown}
	}
	return out
}

// Calls returns the symbol batches FetchPrices was called with.
func (m *MockPriceSource) Calls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.calls...)
}

// Published is one payload captured by RecordingPublisher.
type Published struct {
	OwnerID string
	Payload any
}

// RecordingPublisher is a service.Publisher that records every publish.
// Err, when set, is returned from every Publish call after recording.
type RecordingPublisher struct {
	Err error

	mu        sync.Mutex
	published []Published
}

// Publish implements service.Publisher.
func (p *RecordingPublisher) Publish(_ context.Context, ownerID string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, Published{OwnerID: ownerID, Payload: payload})
	return p.Err
}

// All returns every recorded publish in order.
func (p *RecordingPublisher) All() []Published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Published(nil), p.published...)
}

// Updates returns the valuation envelopes published to ownerID in order.
func (p *RecordingPublisher) Updates(ownerID string) []model.ValuationUpdate {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []model.ValuationUpdate
	for _, pub := range p.published {
		if u, ok := pub.Payload.(model.ValuationUpdate); ok && pub.OwnerID == ownerID {
			out = append(out, u)
		}
	}
	return out
}
