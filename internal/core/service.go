package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/fleximart/internal/config"
	"github.com/JonMunkholm/fleximart/internal/logging"
	"github.com/JonMunkholm/fleximart/internal/metrics"
	"github.com/google/uuid"
)

// ErrNoDatabase is returned when a non-dry run has no database handle.
var ErrNoDatabase = errors.New("no database configured")

// RunOptions controls a single pipeline run.
type RunOptions struct {
	// DryRun extracts, cleans and reports without touching the store.
	DryRun bool
}

// Service runs the extract-clean-load pipeline.
type Service struct {
	db      DB
	cfg     *config.Config
	cleaner *Cleaner
	metrics *metrics.Registry
}

// NewService creates a new Service instance. db may be nil for dry runs;
// m may be nil to disable metrics.
func NewService(db DB, cfg *config.Config, m *metrics.Registry) *Service {
	if m == nil {
		m = metrics.NewRegistry()
	}
	return &Service{
		db:      db,
		cfg:     cfg,
		cleaner: NewCleaner(cfg.Cleaning),
		metrics: m,
	}
}

// EnsureSchema creates the target tables if they are absent.
func (s *Service) EnsureSchema(ctx context.Context) error {
	if s.db == nil {
		return ErrNoDatabase
	}
	return EnsureSchema(ctx, s.db)
}

// Run executes one full pipeline run. The report file is written only when
// the run succeeds; a failed load leaves both the store and the previous
// report untouched.
func (s *Service) Run(ctx context.Context, opts RunOptions) (*Report, error) {
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.FromContext(ctx)

	rep := NewReport(runID, s.cfg.Cleaning.PlaceholderDomain)
	rep.DryRun = opts.DryRun

	err := s.run(ctx, rep, opts)
	s.recordMetrics(rep, opts, err)

	if path := s.cfg.Output.MetricsPath; path != "" {
		if werr := s.metrics.WriteTextfile(path); werr != nil {
			logger.Warn("metrics textfile not written", "path", path, "error", werr)
		}
	}

	if err != nil {
		logger.Error("run failed", "error", err, "code", MapError(err).Code)
		return rep, err
	}

	if err := rep.WriteFile(s.cfg.Output.ReportPath); err != nil {
		return rep, fmt.Errorf("write report: %w", err)
	}

	logger.Info("run complete",
		"dry_run", opts.DryRun,
		"report", s.cfg.Output.ReportPath,
		"orders", rep.Sales.OrdersLoaded,
	)
	return rep, nil
}

func (s *Service) run(ctx context.Context, rep *Report, opts RunOptions) error {
	logger := logging.FromContext(ctx)

	raw, err := Extract(ctx, s.cfg.Input)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	ds := s.cleaner.Transform(raw, rep)
	logger.Info("dataset cleaned",
		"customers", len(ds.Customers),
		"products", len(ds.Products),
		"sales", len(ds.Sales),
	)

	if opts.DryRun {
		rep.SetLoaded(LoadResult{
			Customers:  len(ds.Customers),
			Products:   len(ds.Products),
			Orders:     len(ds.Sales),
			OrderItems: len(ds.Sales),
		})
		return rep.Reconcile()
	}

	if s.db == nil {
		return ErrNoDatabase
	}

	loadCtx, cancel := context.WithTimeout(ctx, s.cfg.Database.LoadTimeout)
	defer cancel()

	if s.cfg.Database.EnsureSchema {
		if err := EnsureSchema(loadCtx, s.db); err != nil {
			return err
		}
	}

	start := time.Now()
	res, err := LoadDataset(loadCtx, s.db, ds)
	s.metrics.LoadDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	rep.SetLoaded(res)
	return rep.Reconcile()
}

func (s *Service) recordMetrics(rep *Report, opts RunOptions, runErr error) {
	m := s.metrics

	rows := func(entity, stage string, n int) {
		m.Rows.WithLabelValues(entity, stage).Add(float64(n))
	}
	rows("customers", "raw", rep.Customers.Raw)
	rows("products", "raw", rep.Products.Raw)
	rows("sales", "raw", rep.Sales.Raw)
	rows("customers", "loaded", rep.Customers.Loaded)
	rows("products", "loaded", rep.Products.Loaded)
	rows("orders", "loaded", rep.Sales.OrdersLoaded)
	rows("order_items", "loaded", rep.Sales.OrderItemsLoaded)

	m.Dropped.WithLabelValues("customers", "duplicate").Add(float64(rep.Customers.Duplicates))
	m.Dropped.WithLabelValues("customers", "missing_customer_id").Add(float64(rep.Customers.MissingKey))
	m.Dropped.WithLabelValues("products", "duplicate").Add(float64(rep.Products.Duplicates))
	m.Dropped.WithLabelValues("products", "missing_product_id").Add(float64(rep.Products.MissingKey))
	m.Dropped.WithLabelValues("products", string(DropNoPriceSignal)).Add(float64(rep.Products.DroppedNoPrice))
	m.Dropped.WithLabelValues("sales", "duplicate").Add(float64(rep.Sales.Duplicates))
	for _, reason := range salesDropReasons {
		m.Dropped.WithLabelValues("sales", string(reason)).Add(float64(rep.Sales.Dropped[reason]))
	}

	m.Repaired.WithLabelValues("customers", "email_filled").Add(float64(rep.Customers.EmailsFilled))
	m.Repaired.WithLabelValues("customers", "email_deduplicated").Add(float64(rep.Customers.EmailsDeduplicated))
	m.Repaired.WithLabelValues("customers", "phone_cleared").Add(float64(rep.Customers.PhonesCleared))
	m.Repaired.WithLabelValues("customers", "registration_date_cleared").Add(float64(rep.Customers.DatesCleared))
	m.Repaired.WithLabelValues("products", "price_imputed").Add(float64(rep.Products.PricesImputed))
	m.Repaired.WithLabelValues("products", "stock_defaulted").Add(float64(rep.Products.StockDefaulted))

	switch {
	case runErr != nil:
		m.Runs.WithLabelValues("failure").Inc()
	case opts.DryRun:
		m.Runs.WithLabelValues("dry_run").Inc()
	default:
		m.Runs.WithLabelValues("success").Inc()
		m.LastSuccess.SetToCurrentTime()
	}
}
