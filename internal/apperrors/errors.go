package apperrors

import "errors"

// Domain entity errors represent missing or invalid entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrPortfolioNotFound indicates that a portfolio with the given ID does not exist
	// or is owned by someone else.
	ErrPortfolioNotFound = errors.New("portfolio not found")

	// ErrItemNotFound indicates that a portfolio item with the given ID does not exist
	// or is owned by someone else.
	ErrItemNotFound = errors.New("portfolio item not found")

	// ErrNoPortfolios indicates that the owner has no portfolios to value.
	ErrNoPortfolios = errors.New("no portfolios found")
)

// Business logic errors represent validation failures or constraint violations.
var (
	ErrInvalidUUID       = errors.New("invalid UUID format")
	ErrInvalidAssetClass = errors.New("invalid asset class")
	ErrInvalidSymbol     = errors.New("symbol is required")
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
	ErrNegativeAmount    = errors.New("amount cannot be negative")

	// ErrSymbolNotListed indicates the symbol is not in the catalog of the portfolio's asset class.
	ErrSymbolNotListed = errors.New("symbol not listed")

	// ErrUnauthorized indicates a missing, expired or forged access token.
	ErrUnauthorized = errors.New("unauthorized")
)

// Price source errors. They never travel past the price aggregator: the
// aggregator folds them into PriceQuote.Outcome.
var (
	// ErrSourceUnavailable indicates a network or HTTP failure talking to a price source.
	ErrSourceUnavailable = errors.New("price source unavailable")

	// ErrSourceDataInvalid indicates an unparsable or missing price field.
	ErrSourceDataInvalid = errors.New("price source returned invalid data")

	// ErrSymbolUnknown indicates the symbol is not in the source's catalog.
	ErrSymbolUnknown = errors.New("symbol unknown to price source")
)

// Channel errors.
var (
	// ErrGroupOperationFailed indicates a join, leave or publish on the broadcast channel failed.
	ErrGroupOperationFailed = errors.New("group operation failed")

	// ErrConnectionLost indicates a transport-level failure on the channel client.
	ErrConnectionLost = errors.New("connection lost")

	// ErrPassInProgress is returned when a refresh pass is requested while one is running.
	ErrPassInProgress = errors.New("refresh pass already in progress")

	// ErrSchedulerStopped is returned when a pass is requested after Stop.
	ErrSchedulerStopped = errors.New("refresh scheduler stopped")
)
