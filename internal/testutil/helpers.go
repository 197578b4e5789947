package testutil

import (
	"database/sql"
	"math/rand"
	"testing"

	"github.com/google/uuid"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/price"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/repository"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/service"
)

// NewTestValuationService wires a ValuationService to the test database, the
// given fake sources and publisher.
func NewTestValuationService(t *testing.T, db *sql.DB, publisher service.Publisher, sources ...price.Source) *service.ValuationService {
	t.Helper()

	return service.NewValuationService(
		repository.NewPortfolioRepository(db),
		price.NewAggregator(sources...),
		publisher,
	)
}

// NewTestPortfolioService wires a PortfolioService to the test database.
// refresher may be nil to disable post-mutation refreshes.
func NewTestPortfolioService(t *testing.T, db *sql.DB, refresher service.Refresher) *service.PortfolioService {
	t.Helper()

	return service.NewPortfolioService(
		repository.NewPortfolioRepository(db),
		refresher,
	)
}

// NewTestSymbolService wires a SymbolService to the test database. exchange
// may be nil to seed equities only.
func NewTestSymbolService(t *testing.T, db *sql.DB, exchange service.ExchangeLister) *service.SymbolService {
	t.Helper()
	return service.NewSymbolService(repository.NewSymbolRepository(db), exchange)
}

func NewTestSystemService(t *testing.T, db *sql.DB) *service.SystemService {
	t.Helper()
	return service.NewSystemService(db)
}

// MakeID generates a UUID string for use in tests.
//
// Example usage:
//
//	id := testutil.MakeID()
//	// Returns: "550e8400-e29b-41d4-a716-446655440000"
func MakeID() string {
	return uuid.New().String()
}

// MakeOwnerID generates a unique owner identifier for testing.
//
// Example usage:
//
//	owner := testutil.MakeOwnerID()
//	// Returns: "owner-1A2B3C"
func MakeOwnerID() string {
	return "owner-" + randomAlphanumeric(6)
}

// MakeSymbol generates a ticker symbol for testing.
//
// Example usage:
//
//	symbol := testutil.MakeSymbol("THY")
//	// Returns: "THY1A2B"
func MakeSymbol(base string) string {
	if base == "" {
		base = "TEST"
	}
	return base + randomAlphanumeric(4)
}

// randomAlphanumeric generates a random alphanumeric string of specified length.
func randomAlphanumeric(length int) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		//nolint:gosec // G404: Using math/rand for test data generation is acceptable
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}
