package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// fakeTx records statements and hands out sequential surrogate ids.
// Methods the loader does not use fall through to the nil pgx.Tx and panic.
type fakeTx struct {
	pgx.Tx

	failOn string // statements containing this substring fail

	execs      []string
	queries    []string
	copied     [][]any
	nextID     int64
	committed  bool
	rolledBack bool
}

type fakeRow struct {
	id  int64
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*int64) = r.id
	return nil
}

func (tx *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	tx.execs = append(tx.execs, sql)
	if tx.failOn != "" && strings.Contains(sql, tx.failOn) {
		return pgconn.CommandTag{}, errors.New("exec failed")
	}
	return pgconn.NewCommandTag("OK"), nil
}

func (tx *fakeTx) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	tx.queries = append(tx.queries, sql)
	if tx.failOn != "" && strings.Contains(sql, tx.failOn) {
		return fakeRow{err: errors.New(`ERROR: new row violates check constraint "products_price_check"`)}
	}
	tx.nextID++
	return fakeRow{id: tx.nextID}
}

func (tx *fakeTx) CopyFrom(_ context.Context, _ pgx.Identifier, _ []string, src pgx.CopyFromSource) (int64, error) {
	var n int64
	for src.Next() {
		vals, err := src.Values()
		if err != nil {
			return n, err
		}
		tx.copied = append(tx.copied, vals)
		n++
	}
	return n, src.Err()
}

func (tx *fakeTx) Commit(context.Context) error {
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error {
	if tx.committed {
		return pgx.ErrTxClosed
	}
	tx.rolledBack = true
	return nil
}

// fakeDB satisfies DB. Exec calls outside a transaction (schema) are recorded.
type fakeDB struct {
	tx       *fakeTx
	beginErr error
	execs    []string
}

func (db *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	if db.beginErr != nil {
		return nil, db.beginErr
	}
	return db.tx, nil
}

func (db *fakeDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	db.execs = append(db.execs, sql)
	return pgconn.NewCommandTag("OK"), nil
}

func (db *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not supported")
}

func (db *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return db.tx.QueryRow(ctx, sql, args...)
}

func sampleDataset() *Dataset {
	day := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	return &Dataset{
		Customers: []Customer{
			{Key: "C001", FirstName: "Rahul", LastName: "Sharma", Email: "rahul@example.com", Phone: "+91-9876543210", City: "Bangalore", RegistrationDate: day},
			{Key: "C002", FirstName: "Priya", LastName: "Patel", Email: "unknown+c002@fleximart.local"},
		},
		Products: []Product{
			{Key: "P001", Name: "Laptop", Category: "Electronics", Price: decimal.RequireFromString("19.99"), Stock: 5},
		},
		Sales: []Sale{
			{TransactionKey: "T001", CustomerKey: "C001", ProductKey: "P001", Quantity: 2, UnitPrice: decimal.RequireFromString("19.99"), Date: day, Status: "Completed"},
			{TransactionKey: "T002", CustomerKey: "C002", ProductKey: "P001", Quantity: 1, UnitPrice: decimal.RequireFromString("19.99"), Date: day, Status: "Pending"},
		},
	}
}

func TestLoadDataset_Commits(t *testing.T) {
	tx := &fakeTx{}
	db := &fakeDB{tx: tx}

	res, err := LoadDataset(context.Background(), db, sampleDataset())
	require.NoError(t, err)

	require.Equal(t, LoadResult{Customers: 2, Products: 1, Orders: 2, OrderItems: 2}, res)
	require.True(t, tx.committed)
	require.False(t, tx.rolledBack)

	require.Len(t, tx.execs, 1)
	require.Equal(t, truncateStatement, tx.execs[0])

	// ids: customers 1,2; product 3; orders 4,5
	require.Len(t, tx.copied, 2)
	first := tx.copied[0]
	require.Equal(t, int64(4), first[0])
	require.Equal(t, int64(3), first[1])
	require.Equal(t, pgtype.Int4{Int32: 2, Valid: true}, first[2])

	subtotal := first[4].(pgtype.Numeric)
	require.True(t, subtotal.Valid)
	require.Equal(t, int64(3998), subtotal.Int.Int64())
	require.Equal(t, int32(-2), subtotal.Exp)
}

func TestLoadDataset_RollsBackOnInsertError(t *testing.T) {
	tx := &fakeTx{failOn: "INSERT INTO orders"}
	db := &fakeDB{tx: tx}

	_, err := LoadDataset(context.Background(), db, sampleDataset())
	require.Error(t, err)
	require.Contains(t, err.Error(), "insert order for transaction T001")

	require.False(t, tx.committed)
	require.True(t, tx.rolledBack)
	require.Empty(t, tx.copied)
}

func TestLoadDataset_RollsBackOnTruncateError(t *testing.T) {
	tx := &fakeTx{failOn: "TRUNCATE"}
	db := &fakeDB{tx: tx}

	_, err := LoadDataset(context.Background(), db, sampleDataset())
	require.Error(t, err)
	require.True(t, tx.rolledBack)
	require.Empty(t, tx.queries)
}

func TestLoadDataset_MappingMissIsFatal(t *testing.T) {
	ds := sampleDataset()
	ds.Sales[1].CustomerKey = "C999"

	tx := &fakeTx{}
	db := &fakeDB{tx: tx}

	_, err := LoadDataset(context.Background(), db, ds)
	require.ErrorIs(t, err, ErrNoSurrogateID)
	require.True(t, tx.rolledBack)
	require.False(t, tx.committed)
	require.Empty(t, tx.copied)
}

func TestLoadDataset_BeginError(t *testing.T) {
	db := &fakeDB{beginErr: errors.New("dial tcp: connection refused")}

	_, err := LoadDataset(context.Background(), db, sampleDataset())
	require.Error(t, err)
	require.Equal(t, "DB004", MapError(err).Code)
}

func TestLoadDataset_EmptyDataset(t *testing.T) {
	tx := &fakeTx{}
	db := &fakeDB{tx: tx}

	res, err := LoadDataset(context.Background(), db, &Dataset{})
	require.NoError(t, err)
	require.Equal(t, LoadResult{}, res)
	require.True(t, tx.committed)
	require.Len(t, tx.execs, 1, "tables are still truncated")
}

func TestEnsureSchema(t *testing.T) {
	db := &fakeDB{}

	require.NoError(t, EnsureSchema(context.Background(), db))
	require.Len(t, db.execs, 4)
	require.Contains(t, db.execs[0], "CREATE TABLE IF NOT EXISTS customers")
	require.Contains(t, db.execs[3], "CREATE TABLE IF NOT EXISTS order_items")
	require.Contains(t, db.execs[2], "DEFAULT 'Pending'")
}

func TestResetTables(t *testing.T) {
	tx := &fakeTx{}
	require.NoError(t, ResetTables(context.Background(), &fakeDB{tx: tx}))
	require.Equal(t, []string{truncateStatement}, tx.execs)
	require.True(t, tx.committed)

	tx = &fakeTx{failOn: "TRUNCATE"}
	err := ResetTables(context.Background(), &fakeDB{tx: tx})
	require.ErrorContains(t, err, "reset tables")
	require.True(t, tx.rolledBack)
	require.False(t, tx.committed)
}
