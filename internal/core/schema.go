package core

import (
	"context"
	"fmt"
	"time"
)

// schemaStatements create the four target tables in dependency order.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		customer_id       INTEGER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		first_name        VARCHAR(50)  NOT NULL,
		last_name         VARCHAR(50)  NOT NULL,
		email             VARCHAR(100) NOT NULL UNIQUE,
		phone             VARCHAR(20),
		city              VARCHAR(50),
		registration_date DATE
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		product_id     INTEGER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		product_name   VARCHAR(100)  NOT NULL,
		category       VARCHAR(50)   NOT NULL,
		price          NUMERIC(10,2) NOT NULL CHECK (price > 0),
		stock_quantity INTEGER       NOT NULL DEFAULT 0 CHECK (stock_quantity >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		order_id     INTEGER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		customer_id  INTEGER       NOT NULL REFERENCES customers (customer_id),
		order_date   DATE          NOT NULL,
		total_amount NUMERIC(10,2) NOT NULL,
		status       VARCHAR(20)   NOT NULL DEFAULT 'Pending'
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_item_id INTEGER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		order_id      INTEGER       NOT NULL REFERENCES orders (order_id),
		product_id    INTEGER       NOT NULL REFERENCES products (product_id),
		quantity      INTEGER       NOT NULL CHECK (quantity > 0),
		unit_price    NUMERIC(10,2) NOT NULL,
		subtotal      NUMERIC(10,2) NOT NULL
	)`,
}

// truncateStatement empties all four tables in one statement, so foreign keys
// between them do not block it, and restarts identities for stable ids.
const truncateStatement = `TRUNCATE TABLE order_items, orders, products, customers RESTART IDENTITY`

// EnsureSchema creates the target tables if they are absent.
func EnsureSchema(ctx context.Context, db DBTX) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// ResetTimeout bounds a standalone reset of the target tables.
const ResetTimeout = 30 * time.Second

// ResetTables empties the target tables and restarts their identities in its
// own transaction.
func ResetTables(ctx context.Context, db TxBeginner) error {
	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()

	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, truncateStatement); err != nil {
		return fmt.Errorf("reset tables: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reset: %w", err)
	}
	return nil
}
