package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMigrate tests that the embedded migrations apply cleanly and only once.
//
// WHY: The server migrates on every start; a second run must be a no-op and
// the schema must enforce the cascade the item repository relies on.
func TestMigrate(t *testing.T) {
	ctx := context.Background()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	applied, err := Migrate(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 3, applied)

	applied, err = Migrate(ctx, db)
	require.NoError(t, err)
	assert.Zero(t, applied)

	t.Run("cascades item deletes", func(t *testing.T) {
		_, err := db.Exec(`INSERT INTO portfolio (id, owner_id, asset_class, created_at) VALUES ('p1', 'o1', 'stock', '2024-01-01')`)
		require.NoError(t, err)
		_, err = db.Exec(`INSERT INTO portfolio_item (id, portfolio_id, symbol, asset_class, quantity, cost_basis_per_unit, acquired_at, created_at)
			VALUES ('i1', 'p1', 'THYAO', 'stock', '10', '100', '2024-01-01', '2024-01-01')`)
		require.NoError(t, err)

		_, err = db.Exec(`DELETE FROM portfolio WHERE id = 'p1'`)
		require.NoError(t, err)

		var count int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM portfolio_item`).Scan(&count))
		assert.Zero(t, count)
	})

	t.Run("rejects unknown asset class", func(t *testing.T) {
		_, err := db.Exec(`INSERT INTO portfolio (id, owner_id, asset_class, created_at) VALUES ('p2', 'o1', 'bond', '2024-01-01')`)
		assert.Error(t, err)
	})

	t.Run("health check", func(t *testing.T) {
		assert.NoError(t, HealthCheck(ctx, db))
	})
}
