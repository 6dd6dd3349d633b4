package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container and connection pool.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	// Create PostgreSQL container
	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	// Get connection string
	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	// Create connection pool
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		t.Fatalf("failed to parse connection string: %v", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	// Create schema
	createSchema(t, pool)

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// createSchema creates the database schema for testing.
func createSchema(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	schema := `
		CREATE TABLE IF NOT EXISTS products (
			id VARCHAR(50) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category VARCHAR(100) NOT NULL,
			image_url TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS product_variants (
			id VARCHAR(80) PRIMARY KEY,
			product_id VARCHAR(50) NOT NULL REFERENCES products(id) ON DELETE CASCADE,
			size VARCHAR(50) NOT NULL DEFAULT '',
			price_cents BIGINT NOT NULL CHECK (price_cents >= 0)
		);

		CREATE TABLE IF NOT EXISTS orders (
			id UUID PRIMARY KEY,
			email VARCHAR(255) NOT NULL,
			amount_cents BIGINT NOT NULL CHECK (amount_cents >= 0),
			ship_name VARCHAR(255) NOT NULL DEFAULT '',
			ship_street VARCHAR(255) NOT NULL DEFAULT '',
			ship_city VARCHAR(100) NOT NULL DEFAULT '',
			ship_state VARCHAR(50) NOT NULL DEFAULT '',
			ship_postal_code VARCHAR(20) NOT NULL DEFAULT '',
			ship_phone VARCHAR(50) NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL,
			checkout_session_id VARCHAR(255) UNIQUE,
			payment_id VARCHAR(255),
			payment_method VARCHAR(50),
			carrier VARCHAR(50),
			tracking_number VARCHAR(100),
			tracking_url TEXT,
			refund_amount_cents BIGINT,
			refund_reason TEXT,
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			shipped_at TIMESTAMP,
			delivered_at TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS order_items (
			id UUID PRIMARY KEY,
			order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			product_id VARCHAR(50) NOT NULL,
			variant_id VARCHAR(80) NOT NULL,
			name VARCHAR(255) NOT NULL,
			size VARCHAR(50) NOT NULL DEFAULT '',
			unit_price_cents BIGINT NOT NULL CHECK (unit_price_cents >= 0),
			quantity INTEGER NOT NULL CHECK (quantity > 0)
		);

		CREATE INDEX IF NOT EXISTS idx_product_variants_product_id ON product_variants(product_id);
		CREATE INDEX IF NOT EXISTS idx_orders_checkout_session_id ON orders(checkout_session_id);
		CREATE INDEX IF NOT EXISTS idx_orders_payment_id ON orders(payment_id);
		CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);
	`

	_, err := pool.Exec(ctx, schema)
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
}

// SeedProducts inserts test catalog data into the database.
func SeedProducts(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	products := []struct {
		id       string
		name     string
		category string
	}{
		{"citrus-box", "Citrus Box", "fruit"},
		{"farm-tshirt", "Farm T-Shirt", "merch"},
		{"orchard-honey", "Orchard Honey", "pantry"},
	}

	for _, p := range products {
		_, err := pool.Exec(ctx,
			"INSERT INTO products (id, name, category) VALUES ($1, $2, $3)",
			p.id, p.name, p.category,
		)
		if err != nil {
			t.Fatalf("failed to seed product %s: %v", p.id, err)
		}
	}

	variants := []struct {
		id         string
		productID  string
		size       string
		priceCents int64
	}{
		{"citrus-box-small", "citrus-box", "small", 2500},
		{"citrus-box-large", "citrus-box", "large", 4500},
		{"farm-tshirt-m", "farm-tshirt", "M", 2500},
		{"farm-tshirt-l", "farm-tshirt", "L", 2500},
		{"orchard-honey-8oz", "orchard-honey", "8 oz", 1200},
	}

	for _, v := range variants {
		_, err := pool.Exec(ctx,
			"INSERT INTO product_variants (id, product_id, size, price_cents) VALUES ($1, $2, $3, $4)",
			v.id, v.productID, v.size, v.priceCents,
		)
		if err != nil {
			t.Fatalf("failed to seed variant %s: %v", v.id, err)
		}
	}
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{"order_items", "orders", "product_variants", "products"}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}
