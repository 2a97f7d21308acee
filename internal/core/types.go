package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// TxBeginner opens the unit of work used by the loader.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// DB is what the service needs from the store. *pgxpool.Pool satisfies it.
type DB interface {
	DBTX
	TxBeginner
}

// CustomerRaw is one row of customers_raw.csv. All fields are text.
type CustomerRaw struct {
	CustomerID       string
	FirstName        string
	LastName         string
	Email            string
	Phone            string
	City             string
	RegistrationDate string
}

// ProductRaw is one row of products_raw.csv.
type ProductRaw struct {
	ProductID     string
	ProductName   string
	Category      string
	Price         string
	StockQuantity string
}

// SalesRaw is one row of sales_raw.csv.
type SalesRaw struct {
	TransactionID   string
	CustomerID      string
	ProductID       string
	Quantity        string
	UnitPrice       string
	TransactionDate string
	Status          string
}

// RawDataset holds the three extracted files for one run.
type RawDataset struct {
	Customers []CustomerRaw
	Products  []ProductRaw
	Sales     []SalesRaw
}

// Customer is a cleaned customer keyed by its natural ID.
// Empty Phone and zero RegistrationDate are stored as NULL.
type Customer struct {
	Key              string
	FirstName        string
	LastName         string
	Email            string
	Phone            string
	City             string
	RegistrationDate time.Time
}

// Product is a cleaned product. Price is positive with two fractional digits.
type Product struct {
	Key      string
	Name     string
	Category string
	Price    decimal.Decimal
	Stock    int
}

// Sale is a validated sales row. It becomes one order and one order item.
type Sale struct {
	TransactionKey string
	CustomerKey    string
	ProductKey     string
	Quantity       int
	UnitPrice      decimal.Decimal
	Date           time.Time
	Status         string
}

// Subtotal returns round2(round2(unit price) × quantity).
func (s Sale) Subtotal() decimal.Decimal {
	return RoundFixedPoint2(RoundFixedPoint2(s.UnitPrice).Mul(decimal.NewFromInt(int64(s.Quantity))))
}

// Dataset is the cleaned, integrity-checked input to the loader.
type Dataset struct {
	Customers []Customer
	Products  []Product
	Sales     []Sale
}

// DropReason explains why a row was excluded. DropNone means the row was kept.
type DropReason string

const (
	DropNone             DropReason = ""
	DropMissingCustomer  DropReason = "missing_customer_id"
	DropMissingProduct   DropReason = "missing_product_id"
	DropInvalidQuantity  DropReason = "invalid_quantity"
	DropInvalidUnitPrice DropReason = "invalid_unit_price"
	DropInvalidDate      DropReason = "invalid_date"
	DropUnknownCustomer  DropReason = "unknown_customer"
	DropUnknownProduct   DropReason = "unknown_product"
	DropNoPriceSignal    DropReason = "no_price_signal"
)

// salesDropReasons is the fixed order in which sales drops are reported.
var salesDropReasons = []DropReason{
	DropMissingCustomer,
	DropMissingProduct,
	DropInvalidQuantity,
	DropInvalidUnitPrice,
	DropInvalidDate,
	DropUnknownCustomer,
	DropUnknownProduct,
}

// LoadResult counts the rows written by one committed load.
type LoadResult struct {
	Customers  int
	Products   int
	Orders     int
	OrderItems int
}
