package core

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/fleximart/internal/config"
	"github.com/JonMunkholm/fleximart/internal/metrics"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// scenarioInputs is the three-file run used across the service tests:
// 3 customers (one without email), 2 products (one without price) and
// 4 sales (one with zero quantity, one for a nonexistent product).
func scenarioInputs(t *testing.T) config.InputConfig {
	return writeInputs(t,
		customersCSV+
			"C001,Rahul,Sharma,rahul@example.com,9876543210,bangalore,2023-01-15\n"+
			"C002,Priya,Patel,,+91 98765 43211,mumbai,15/02/2023\n"+
			"C003,Amit,Kumar,amit@example.com,09876543212,delhi,03-20-2023\n",
		productsCSV+
			"P001,Laptop,electronics,50.00,10\n"+
			"P002,Mouse,ELECTRONICS,,5\n",
		salesCSV+
			"T001,C001,P001,1,50.00,2024-01-15,completed\n"+
			"T002,C002,P002,2,50.00,01/20/2024,\n"+
			"T003,C003,P001,0,50.00,2024-01-21,completed\n"+
			"T004,C001,P999,1,50.00,2024-01-22,completed\n",
	)
}

func testConfig(t *testing.T, in config.InputConfig) *config.Config {
	out := t.TempDir()
	return &config.Config{
		Database: config.DatabaseConfig{LoadTimeout: time.Minute, EnsureSchema: true},
		Input:    in,
		Output: config.OutputConfig{
			ReportPath:  filepath.Join(out, "data_quality_report.txt"),
			MetricsPath: filepath.Join(out, "fleximart.prom"),
		},
		Cleaning: config.CleaningConfig{PlaceholderDomain: "fleximart.local", PhoneCountryCode: "91"},
	}
}

func TestService_Run(t *testing.T) {
	cfg := testConfig(t, scenarioInputs(t))
	tx := &fakeTx{}
	db := &fakeDB{tx: tx}
	m := metrics.NewRegistry()

	rep, err := NewService(db, cfg, m).Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	require.Len(t, db.execs, len(schemaStatements), "schema ensured before load")
	require.True(t, tx.committed)

	require.Equal(t, 3, rep.Customers.Loaded)
	require.Equal(t, 2, rep.Products.Loaded)
	require.Equal(t, 2, rep.Sales.OrdersLoaded)
	require.Equal(t, 2, rep.Sales.OrderItemsLoaded)
	require.Equal(t, 1, rep.Customers.EmailsFilled)
	require.Equal(t, 1, rep.Products.PricesImputed)
	require.Equal(t, 1, rep.Sales.Dropped[DropInvalidQuantity])
	require.Equal(t, 1, rep.Sales.Dropped[DropUnknownProduct])
	require.Zero(t, rep.Sales.Dropped[DropMissingProduct])
	require.NotEmpty(t, rep.RunID)

	// T002: imputed Mouse price 50.00 x 2
	require.Len(t, tx.copied, 2)
	subtotal := tx.copied[1][4].(pgtype.Numeric)
	require.Equal(t, int64(10000), subtotal.Int.Int64())
	require.Equal(t, int32(-2), subtotal.Exp)

	data, err := os.ReadFile(cfg.Output.ReportPath)
	require.NoError(t, err)
	report := string(data)
	require.Contains(t, report, rep.RunID)
	require.True(t, strings.Contains(report, "Orders loaded:"))

	require.Equal(t, float64(1), testutil.ToFloat64(m.Runs.WithLabelValues("success")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.Dropped.WithLabelValues("sales", string(DropUnknownProduct))))

	prom, err := os.ReadFile(cfg.Output.MetricsPath)
	require.NoError(t, err)
	require.Contains(t, string(prom), `fleximart_etl_runs_total{status="success"} 1`)
}

func TestService_RunTwiceIsDeterministic(t *testing.T) {
	cfg := testConfig(t, scenarioInputs(t))

	var reports []*Report
	for i := 0; i < 2; i++ {
		db := &fakeDB{tx: &fakeTx{}}
		rep, err := NewService(db, cfg, nil).Run(context.Background(), RunOptions{})
		require.NoError(t, err)
		reports = append(reports, rep)
	}

	require.Equal(t, reports[0].Customers, reports[1].Customers)
	require.Equal(t, reports[0].Products, reports[1].Products)
	require.Equal(t, reports[0].Sales, reports[1].Sales)
	require.NotEqual(t, reports[0].RunID, reports[1].RunID)
}

func TestService_DryRun(t *testing.T) {
	cfg := testConfig(t, scenarioInputs(t))
	m := metrics.NewRegistry()

	rep, err := NewService(nil, cfg, m).Run(context.Background(), RunOptions{DryRun: true})
	require.NoError(t, err)

	require.True(t, rep.DryRun)
	require.Equal(t, 2, rep.Sales.OrdersLoaded)

	data, err := os.ReadFile(cfg.Output.ReportPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "dry run")
	require.Equal(t, float64(1), testutil.ToFloat64(m.Runs.WithLabelValues("dry_run")))
}

func TestService_LoadFailureKeepsReportUnwritten(t *testing.T) {
	cfg := testConfig(t, scenarioInputs(t))
	tx := &fakeTx{failOn: "INSERT INTO products"}
	m := metrics.NewRegistry()

	_, err := NewService(&fakeDB{tx: tx}, cfg, m).Run(context.Background(), RunOptions{})
	require.Error(t, err)
	require.Equal(t, "DB010", MapError(err).Code)
	require.True(t, tx.rolledBack)

	_, statErr := os.Stat(cfg.Output.ReportPath)
	require.True(t, os.IsNotExist(statErr), "report must not be written on failure")
	require.Equal(t, float64(1), testutil.ToFloat64(m.Runs.WithLabelValues("failure")))
}

func TestService_MissingInputFailsBeforeLoad(t *testing.T) {
	in := writeInputs(t, customersCSV, "", salesCSV)
	cfg := testConfig(t, in)
	tx := &fakeTx{}

	_, err := NewService(&fakeDB{tx: tx}, cfg, nil).Run(context.Background(), RunOptions{})
	require.ErrorIs(t, err, ErrMissingInput)
	require.Empty(t, tx.execs, "store untouched")

	_, statErr := os.Stat(cfg.Output.ReportPath)
	require.True(t, os.IsNotExist(statErr))
}

func TestService_NoDatabase(t *testing.T) {
	cfg := testConfig(t, scenarioInputs(t))

	_, err := NewService(nil, cfg, nil).Run(context.Background(), RunOptions{})
	require.ErrorIs(t, err, ErrNoDatabase)
}
