package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilterSales(t *testing.T) {
	rep := NewReport("test", "")
	customers := []Customer{{Key: "C001"}, {Key: "C002"}}
	products := []Product{{Key: "P001"}}

	sales := []Sale{
		{TransactionKey: "T1", CustomerKey: "C001", ProductKey: "P001"},
		{TransactionKey: "T2", CustomerKey: "C999", ProductKey: "P001"},
		{TransactionKey: "T3", CustomerKey: "C002", ProductKey: "P999"},
		{TransactionKey: "T4", CustomerKey: "C999", ProductKey: "P999"},
	}

	got := FilterSales(sales, customers, products, rep)
	require.Len(t, got, 1)
	require.Equal(t, "T1", got[0].TransactionKey)

	require.Equal(t, 2, rep.Sales.Dropped[DropUnknownCustomer], "both-unknown counts once, as customer")
	require.Equal(t, 1, rep.Sales.Dropped[DropUnknownProduct])
	require.Zero(t, rep.Sales.Dropped[DropMissingCustomer])
	require.Zero(t, rep.Sales.Dropped[DropMissingProduct])
}

func TestTransform_IntegrityUsesSurvivingRows(t *testing.T) {
	c := newTestCleaner()
	rep := NewReport("test", "fleximart.local")

	raw := &RawDataset{
		Customers: []CustomerRaw{{CustomerID: "C001", Email: "a@example.com"}},
		Products: []ProductRaw{
			{ProductID: "P001", Category: "fashion", Price: "10"},
			{ProductID: "P002", Category: "toys", Price: ""}, // dropped: no peers
		},
		Sales: []SalesRaw{
			{TransactionID: "T1", CustomerID: "C001", ProductID: "P001", Quantity: "1", UnitPrice: "10", TransactionDate: "2024-01-01"},
			{TransactionID: "T2", CustomerID: "C001", ProductID: "P002", Quantity: "1", UnitPrice: "10", TransactionDate: "2024-01-01"},
			{TransactionID: "T3", CustomerID: "", ProductID: "P001", Quantity: "1", UnitPrice: "10", TransactionDate: "2024-01-01"},
		},
	}

	ds := c.Transform(raw, rep)
	require.Len(t, ds.Sales, 1)
	require.Equal(t, 1, rep.Sales.Dropped[DropUnknownProduct], "product dropped by cleaning is unknown to sales")
	require.Equal(t, 1, rep.Sales.Dropped[DropMissingCustomer])
	require.Zero(t, rep.Sales.Dropped[DropUnknownCustomer], "missing key is not also counted as unknown")
}
