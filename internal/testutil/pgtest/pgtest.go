// Package pgtest starts a disposable PostgreSQL seeded with the shop schema
// the default prompt describes.
package pgtest

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// ShopSchema creates users, products, inventories, orders and order_items
// and seeds a handful of rows.
const ShopSchema = `
	CREATE TABLE users (
		id         SERIAL PRIMARY KEY,
		name       VARCHAR(100) NOT NULL,
		email      VARCHAR(100) UNIQUE NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE products (
		id          SERIAL PRIMARY KEY,
		name        VARCHAR(100) NOT NULL,
		description TEXT,
		price       NUMERIC(10,2) NOT NULL,
		created_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE inventories (
		product_id INT PRIMARY KEY REFERENCES products(id) ON DELETE CASCADE,
		quantity   INT NOT NULL DEFAULT 0,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE orders (
		id         SERIAL PRIMARY KEY,
		user_id    INT REFERENCES users(id) ON DELETE CASCADE,
		order_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		status     VARCHAR(20) DEFAULT 'pending'
	);
	CREATE TABLE order_items (
		id         SERIAL PRIMARY KEY,
		order_id   INT REFERENCES orders(id) ON DELETE CASCADE,
		product_id INT REFERENCES products(id) ON DELETE CASCADE,
		quantity   INT NOT NULL,
		price      NUMERIC(10,2) NOT NULL,
		UNIQUE(order_id, product_id)
	);

	INSERT INTO users (name, email) VALUES
		('Alice', 'alice@example.com'),
		('Bob', 'bob@example.com');
	INSERT INTO products (name, price) VALUES
		('Keyboard', 49.99),
		('Monitor', 199.00),
		('Laptop', 1299.99),
		('Mouse', 19.50),
		('Desk', 349.00),
		('Chair', 249.00),
		('Cable', 5.25);
`

// TopByPrice is the names of the five most expensive seeded products, most
// expensive first.
var TopByPrice = []string{"Laptop", "Desk", "Chair", "Monitor", "Keyboard"}

// Start runs postgres:16-alpine, applies ShopSchema and returns the
// connection string. It skips the test under -short.
func Start(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Exec(ctx, ShopSchema)
	require.NoError(t, err)

	return connStr
}
