package sqldb

import (
	"context"
	"testing"
	"time"

	"github.com/guillermoBallester/askdb/internal/testutil/pgtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_StdlibRoundTrip(t *testing.T) {
	connStr := pgtest.Start(t)
	ctx := context.Background()

	db, err := Open(ctx, DBConfig{DSN: connStr, MaxOpenConns: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	executor := NewExecutor(db, 100, 10*time.Second)

	rows, err := executor.Execute(ctx, validated(t, "SELECT name, price FROM products ORDER BY price DESC LIMIT 5;"))
	require.NoError(t, err)
	require.Len(t, rows, 5)

	var names []string
	for _, r := range rows {
		names = append(names, r["name"].(string))
	}
	assert.Equal(t, pgtest.TopByPrice, names)

	_, err = executor.Execute(ctx, validated(t, "SELECT nextval('products_id_seq')"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only")
	assert.Zero(t, db.Stats().InUse)
}

func TestIntegration_CatalogChecker(t *testing.T) {
	connStr := pgtest.Start(t)
	ctx := context.Background()

	db, err := Open(ctx, DBConfig{DSN: connStr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	checker := NewCatalogChecker(db)
	require.NoError(t, checker.Ready(ctx, []string{"users", "products", "inventories", "orders", "order_items"}))

	missing, err := checker.MissingTables(ctx, []string{"products", "refunds"})
	require.NoError(t, err)
	assert.Equal(t, []string{"refunds"}, missing)
	assert.Error(t, checker.Ready(ctx, []string{"refunds"}))
}

func TestOpen_RequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), DBConfig{})
	assert.ErrorContains(t, err, "dsn is required")
}
