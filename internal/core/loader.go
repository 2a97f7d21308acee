package core

// loader.go replaces the contents of the target tables with a cleaned
// dataset inside a single transaction.
//
// Surrogate ids come back from INSERT ... RETURNING and are kept in
// natural-key maps that live only for one LoadDataset call. Order items go
// through the COPY protocol once every order id is known.

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/fleximart/internal/logging"
	"github.com/jackc/pgx/v5"
)

// ErrNoSurrogateID is returned when a sale references a key that was not
// inserted in the same transaction.
var ErrNoSurrogateID = errors.New("no surrogate id")

const (
	insertCustomerSQL = `INSERT INTO customers (first_name, last_name, email, phone, city, registration_date)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING customer_id`
	insertProductSQL = `INSERT INTO products (product_name, category, price, stock_quantity)
		VALUES ($1, $2, $3, $4) RETURNING product_id`
	insertOrderSQL = `INSERT INTO orders (customer_id, order_date, total_amount, status)
		VALUES ($1, $2, $3, $4) RETURNING order_id`
)

var orderItemColumns = []string{"order_id", "product_id", "quantity", "unit_price", "subtotal"}

// LoadDataset truncates the target tables and inserts ds in one transaction.
// Any failure rolls the transaction back and leaves the previous contents
// in place.
func LoadDataset(ctx context.Context, db TxBeginner, ds *Dataset) (LoadResult, error) {
	logger := logging.WithFields(ctx, "stage", "load")

	tx, err := db.Begin(ctx)
	if err != nil {
		return LoadResult{}, fmt.Errorf("begin load: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	res, err := loadTx(ctx, tx, ds)
	if err != nil {
		logger.Error("load failed, rolling back", "error", err)
		return LoadResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return LoadResult{}, fmt.Errorf("commit load: %w", err)
	}

	logger.Info("load committed",
		"customers", res.Customers,
		"products", res.Products,
		"orders", res.Orders,
		"order_items", res.OrderItems,
	)
	return res, nil
}

func loadTx(ctx context.Context, tx pgx.Tx, ds *Dataset) (LoadResult, error) {
	var res LoadResult

	if _, err := tx.Exec(ctx, truncateStatement); err != nil {
		return res, fmt.Errorf("truncate: %w", err)
	}

	customerIDs := make(map[string]int64, len(ds.Customers))
	for _, c := range ds.Customers {
		var id int64
		err := tx.QueryRow(ctx, insertCustomerSQL,
			c.FirstName,
			c.LastName,
			c.Email,
			ToPgText(c.Phone),
			ToPgText(c.City),
			ToPgDate(c.RegistrationDate),
		).Scan(&id)
		if err != nil {
			return res, fmt.Errorf("insert customer %s: %w", c.Key, err)
		}
		customerIDs[c.Key] = id
	}
	res.Customers = len(customerIDs)

	productIDs := make(map[string]int64, len(ds.Products))
	for _, p := range ds.Products {
		var id int64
		err := tx.QueryRow(ctx, insertProductSQL,
			p.Name,
			p.Category,
			ToPgNumeric(p.Price),
			ToPgInt4(p.Stock),
		).Scan(&id)
		if err != nil {
			return res, fmt.Errorf("insert product %s: %w", p.Key, err)
		}
		productIDs[p.Key] = id
	}
	res.Products = len(productIDs)

	items := make([][]any, 0, len(ds.Sales))
	for _, s := range ds.Sales {
		custID, ok := customerIDs[s.CustomerKey]
		if !ok {
			return res, fmt.Errorf("%w for customer %s (transaction %s)", ErrNoSurrogateID, s.CustomerKey, s.TransactionKey)
		}
		prodID, ok := productIDs[s.ProductKey]
		if !ok {
			return res, fmt.Errorf("%w for product %s (transaction %s)", ErrNoSurrogateID, s.ProductKey, s.TransactionKey)
		}

		subtotal := ToPgNumeric(s.Subtotal())

		var orderID int64
		err := tx.QueryRow(ctx, insertOrderSQL,
			custID,
			ToPgDate(s.Date),
			subtotal,
			s.Status,
		).Scan(&orderID)
		if err != nil {
			return res, fmt.Errorf("insert order for transaction %s: %w", s.TransactionKey, err)
		}
		res.Orders++

		items = append(items, []any{
			orderID,
			prodID,
			ToPgInt4(s.Quantity),
			ToPgNumeric(s.UnitPrice),
			subtotal,
		})
	}

	if len(items) > 0 {
		n, err := tx.CopyFrom(ctx, pgx.Identifier{"order_items"}, orderItemColumns, pgx.CopyFromRows(items))
		if err != nil {
			return res, fmt.Errorf("copy order items: %w", err)
		}
		if int(n) != len(items) {
			return res, fmt.Errorf("copy order items: wrote %d of %d rows", n, len(items))
		}
	}
	res.OrderItems = len(items)

	return res, nil
}
