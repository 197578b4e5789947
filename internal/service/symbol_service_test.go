package service_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/api/request"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/testutil"
)

func symbolNames(symbols []model.Symbol) []string {
	out := make([]string, len(symbols))
	for i, s := range symbols {
		out[i] = s.Symbol
	}
	return out
}

// TestSymbolService_Seed tests loading the catalog from the bundled equity
// list and the exchange listing.
//
// WHY: The catalog decides which symbols a user can hold. Only pairs that
// actually trade against a supported quote may be listed, and an exchange
// outage at startup must not leave equities unseeded.
func TestSymbolService_Seed(t *testing.T) {
	ctx := context.Background()

	t.Run("lists trading base assets once", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		exchange := testutil.NewMockExchange("BTC", "ETH").
			WithPair("BTC", "TRY", "TRADING").
			WithPair("LUNA", "USDT", "BREAK").
			WithPair("DOGE", "EUR", "TRADING").
			WithPair("sol", "TRY", "TRADING")
		svc := testutil.NewTestSymbolService(t, db, exchange)

		require.NoError(t, svc.Seed(ctx))

		symbols, err := svc.List(ctx, model.AssetClassCrypto)
		require.NoError(t, err)
		assert.Equal(t, []string{"BTC", "ETH", "SOL"}, symbolNames(symbols))
		assert.Equal(t, model.SymbolSourceBinance, symbols[0].Source)
	})

	t.Run("bundled equities are seeded", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestSymbolService(t, db, nil)

		require.NoError(t, svc.Seed(ctx))

		symbols, err := svc.Search(ctx, model.AssetClassEquity, "thy")
		require.NoError(t, err)
		require.Len(t, symbols, 1)
		assert.Equal(t, "THYAO", symbols[0].Symbol)
		assert.Equal(t, "Türk Hava Yolları", symbols[0].Name)
		assert.Equal(t, model.SymbolSourceBIST, symbols[0].Source)
	})

	t.Run("exchange outage still seeds equities", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		exchange := &testutil.MockExchange{Err: apperrors.ErrSourceUnavailable}
		svc := testutil.NewTestSymbolService(t, db, exchange)

		err := svc.Seed(ctx)
		assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)

		stocks, err := svc.List(ctx, model.AssetClassEquity)
		require.NoError(t, err)
		assert.NotEmpty(t, stocks)

		coins, err := svc.List(ctx, model.AssetClassCrypto)
		require.NoError(t, err)
		assert.Empty(t, coins)
	})

	t.Run("reseeding keeps delisted symbols", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		exchange := testutil.NewMockExchange("BTC", "FTT")
		svc := testutil.NewTestSymbolService(t, db, exchange)
		require.NoError(t, svc.Seed(ctx))

		exchange.Pairs = testutil.NewMockExchange("BTC").Pairs
		require.NoError(t, svc.Seed(ctx))

		symbols, err := svc.List(ctx, model.AssetClassCrypto)
		require.NoError(t, err)
		assert.Equal(t, []string{"BTC", "FTT"}, symbolNames(symbols))
	})

	t.Run("blank search is rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestSymbolService(t, db, nil)

		_, err := svc.Search(ctx, model.AssetClassEquity, "  ")
		assert.ErrorIs(t, err, apperrors.ErrInvalidSymbol)
	})
}

// TestPortfolioService_AddItemCatalog tests that new positions must reference
// a listed symbol of the portfolio's asset class.
//
// WHY: A position on a symbol no source can price shows up as a permanent
// error in every valuation; rejecting it at entry keeps portfolios priceable.
func TestPortfolioService_AddItemCatalog(t *testing.T) {
	ctx := context.Background()
	item := func(symbol string) request.CreateItemRequest {
		return request.CreateItemRequest{Symbol: symbol, Quantity: decimal.RequireFromString("1"), BuyPrice: decimal.RequireFromString("10")}
	}

	t.Run("listed symbol is accepted case-insensitively", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		catalog := testutil.NewTestSymbolService(t, db, testutil.NewMockExchange("BTC"))
		require.NoError(t, catalog.Seed(ctx))
		svc := testutil.NewTestPortfolioService(t, db, nil).WithCatalog(catalog)
		p := testutil.NewPortfolio().WithOwner("o1").Crypto().Build(t, db)

		pos, err := svc.AddItem(ctx, "o1", p.ID, item(" btc "))
		require.NoError(t, err)
		assert.Equal(t, "BTC", pos.Symbol)
	})

	t.Run("unlisted symbol is rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		catalog := testutil.NewTestSymbolService(t, db, testutil.NewMockExchange("BTC"))
		require.NoError(t, catalog.Seed(ctx))
		ref := &recordingRefresher{}
		svc := testutil.NewTestPortfolioService(t, db, ref).WithCatalog(catalog)
		p := testutil.NewPortfolio().WithOwner("o1").Crypto().Build(t, db)

		_, err := svc.AddItem(ctx, "o1", p.ID, item("NOPE"))
		assert.ErrorIs(t, err, apperrors.ErrSymbolNotListed)
		assert.Empty(t, ref.calls())

		portfolios, err := svc.GetPortfolios(ctx, "o1")
		require.NoError(t, err)
		require.Len(t, portfolios, 1)
		assert.Empty(t, portfolios[0].Positions)
	})

	t.Run("symbol is checked against the portfolio's class", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		catalog := testutil.NewTestSymbolService(t, db, testutil.NewMockExchange("BTC"))
		require.NoError(t, catalog.Seed(ctx))
		svc := testutil.NewTestPortfolioService(t, db, nil).WithCatalog(catalog)
		stocks := testutil.NewPortfolio().WithOwner("o1").Build(t, db)

		_, err := svc.AddItem(ctx, "o1", stocks.ID, item("BTC"))
		assert.ErrorIs(t, err, apperrors.ErrSymbolNotListed)

		_, err = svc.AddItem(ctx, "o1", stocks.ID, item("THYAO"))
		assert.NoError(t, err)
	})

	t.Run("unseeded class accepts any symbol", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		catalog := testutil.NewTestSymbolService(t, db, &testutil.MockExchange{Err: apperrors.ErrSourceUnavailable})
		require.Error(t, catalog.Seed(ctx))
		svc := testutil.NewTestPortfolioService(t, db, nil).WithCatalog(catalog)
		p := testutil.NewPortfolio().WithOwner("o1").Crypto().Build(t, db)

		_, err := svc.AddItem(ctx, "o1", p.ID, item("BTC"))
		assert.NoError(t, err)
	})
}
