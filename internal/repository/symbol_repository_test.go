package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/repository"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/testutil"
)

func stock(symbol, name string) model.Symbol {
	return model.Symbol{AssetClass: model.AssetClassEquity, Symbol: symbol, Name: name, Source: model.SymbolSourceBIST}
}

func coin(symbol string) model.Symbol {
	return model.Symbol{AssetClass: model.AssetClassCrypto, Symbol: symbol, Source: model.SymbolSourceBinance}
}

// TestSymbolRepository tests the symbol catalog store.
//
// WHY: Item creation is gated on this table and the asset picker searches it;
// classes must never bleed into each other and reseeding must not duplicate rows.
func TestSymbolRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("upsert replaces existing entries", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewSymbolRepository(db)

		require.NoError(t, repo.UpsertSymbols(ctx, []model.Symbol{stock("THYAO", "old"), stock("GARAN", "Garanti")}))
		require.NoError(t, repo.UpsertSymbols(ctx, []model.Symbol{stock("THYAO", "Turk Hava Yollari")}))

		n, err := repo.CountSymbols(ctx, model.AssetClassEquity)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		symbols, err := repo.ListSymbols(ctx, model.AssetClassEquity)
		require.NoError(t, err)
		require.Len(t, symbols, 2)
		assert.Equal(t, "GARAN", symbols[0].Symbol)
		assert.Equal(t, "Turk Hava Yollari", symbols[1].Name)
	})

	t.Run("empty upsert is a no-op", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewSymbolRepository(db)

		require.NoError(t, repo.UpsertSymbols(ctx, nil))
		symbols, err := repo.ListSymbols(ctx, model.AssetClassCrypto)
		require.NoError(t, err)
		assert.NotNil(t, symbols)
		assert.Empty(t, symbols)
	})

	t.Run("search matches substrings within one class", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewSymbolRepository(db)
		require.NoError(t, repo.UpsertSymbols(ctx, []model.Symbol{
			stock("AKBNK", "Akbank"), stock("YKBNK", "Yapi Kredi"), stock("THYAO", "THY"), coin("BNB"),
		}))

		symbols, err := repo.SearchSymbols(ctx, model.AssetClassEquity, "BN")
		require.NoError(t, err)
		require.Len(t, symbols, 2)
		assert.Equal(t, "AKBNK", symbols[0].Symbol)
		assert.Equal(t, "YKBNK", symbols[1].Symbol)

		symbols, err = repo.SearchSymbols(ctx, model.AssetClassCrypto, "BN")
		require.NoError(t, err)
		require.Len(t, symbols, 1)
		assert.Equal(t, model.SymbolSourceBinance, symbols[0].Source)
	})

	t.Run("exists is scoped by class", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewSymbolRepository(db)
		require.NoError(t, repo.UpsertSymbols(ctx, []model.Symbol{coin("BTC")}))

		ok, err := repo.SymbolExists(ctx, model.AssetClassCrypto, "BTC")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.SymbolExists(ctx, model.AssetClassEquity, "BTC")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
