package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/guillermoBallester/askdb/internal/adapter/postgres"
)

// CatalogChecker is the database/sql counterpart of postgres.CatalogChecker.
type CatalogChecker struct {
	db *sql.DB
}

func NewCatalogChecker(db *sql.DB) *CatalogChecker {
	return &CatalogChecker{db: db}
}

// MissingTables returns the subset of tables not found in the database, in
// input order.
func (c *CatalogChecker) MissingTables(ctx context.Context, tables []string) ([]string, error) {
	// The pgx stdlib driver encodes []string as a text array.
	rows, err := c.db.QueryContext(ctx, postgres.ExistingTablesQuery, tables)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

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

// Ready pings the database and fails when any of tables is missing.
func (c *CatalogChecker) Ready(ctx context.Context, tables []string) error {
	if err := c.db.PingContext(ctx); err != nil {
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
