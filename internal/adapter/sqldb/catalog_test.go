package sqldb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/guillermoBallester/askdb/internal/adapter/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// passThroughConverter lets []string arguments reach sqlmock the way the pgx
// stdlib driver accepts them.
type passThroughConverter struct{}

func (passThroughConverter) ConvertValue(v any) (driver.Value, error) { return v, nil }

func newCatalogMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp),
		sqlmock.ValueConverterOption(passThroughConverter{}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func expectTables(mock sqlmock.Sqlmock, found ...string) {
	rows := sqlmock.NewRows([]string{"table_name"})
	for _, name := range found {
		rows.AddRow(name)
	}
	mock.ExpectQuery(regexp.QuoteMeta(postgres.ExistingTablesQuery)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)
}

func TestCatalogChecker_MissingTables(t *testing.T) {
	db, mock := newCatalogMock(t)
	expectTables(mock, "orders", "users")

	missing, err := NewCatalogChecker(db).MissingTables(context.Background(), []string{"users", "products", "orders", "refunds"})
	require.NoError(t, err)
	assert.Equal(t, []string{"products", "refunds"}, missing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogChecker_Ready(t *testing.T) {
	t.Run("all tables present", func(t *testing.T) {
		db, mock := newCatalogMock(t)
		expectTables(mock, "users", "orders")

		err := NewCatalogChecker(db).Ready(context.Background(), []string{"users", "orders"})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing table", func(t *testing.T) {
		db, mock := newCatalogMock(t)
		expectTables(mock, "users")

		err := NewCatalogChecker(db).Ready(context.Background(), []string{"users", "orders"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "schema is missing tables: [orders]")
	})

	t.Run("query error", func(t *testing.T) {
		db, mock := newCatalogMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(postgres.ExistingTablesQuery)).
			WithArgs(sqlmock.AnyArg()).
			WillReturnError(errors.New("permission denied for schema information_schema"))

		err := NewCatalogChecker(db).Ready(context.Background(), []string{"users"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "listing tables")
	})
}
