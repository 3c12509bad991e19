package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ExistingTablesQuery returns which of $1 (a text array) exist as tables or
// views outside the system schemas. sqldb runs the same query through
// database/sql.
const ExistingTablesQuery = `
	SELECT DISTINCT t.table_name
	FROM information_schema.tables t
	WHERE t.table_schema NOT IN ('pg_catalog', 'information_schema')
		AND t.table_type IN ('BASE TABLE', 'VIEW')
		AND t.table_name = ANY($1)`

// CatalogChecker verifies that the tables described to the model actually
// exist, so a drifted database is reported as not ready instead of failing
// every question at execution time.
type CatalogChecker struct {
	pool *pgxpool.Pool
}

func NewCatalogChecker(pool *pgxpool.Pool) *CatalogChecker {
	return &CatalogChecker{pool: pool}
}

// MissingTables returns the subset of tables not found in the database, in
// input order.
func (c *CatalogChecker) MissingTables(ctx context.Context, tables []string) ([]string, error) {
	rows, err := c.pool.Query(ctx, ExistingTablesQuery, tables)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	found := make(map[string]bool, len(tables))
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning table row: %w", err)
		}
		found[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tables: %w", err)
	}

	var missing []string
	for _, t := range tables {
		if !found[t] {
			missing = append(missing, t)
		}
	}
	return missing, nil
}

// Ready pings the pool and fails when any of tables is missing.
func (c *CatalogChecker) Ready(ctx context.Context, tables []string) error {
	if err := c.pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	missing, err := c.MissingTables(ctx, tables)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("schema is missing tables: %v", missing)
	}
	return nil
}
