package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/fleximart/internal/config"
	"github.com/JonMunkholm/fleximart/internal/core"
	"github.com/JonMunkholm/fleximart/internal/logging"
	"github.com/JonMunkholm/fleximart/internal/metrics"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error(core.FormatUserError(err), "error", err, "code", core.MapError(err).Code)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfg *config.Config

	root := &cobra.Command{
		Use:           "fleximart",
		Short:         "Load FlexiMart raw CSV exports into PostgreSQL",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env values never override variables already set in the environment
			if err := godotenv.Load(); err == nil {
				slog.Debug("loaded .env file")
			}

			loaded, err := config.Load()
			if err != nil {
				return err
			}
			cfg = loaded

			logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
			return nil
		},
	}

	root.AddCommand(newRunCmd(&cfg), newSchemaCmd(&cfg), newResetCmd(&cfg))
	return root
}

type runOptions struct {
	dryRun  bool
	report  string
	dataDir string
	metrics string
}

func newRunCmd(cfg **config.Config) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Extract, clean and reload the warehouse tables",
		Long: `Reads customers, products and sales CSV files, cleans them and replaces the
contents of the customers, products, orders and order_items tables in a single
transaction. A data quality report is written after a successful run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := *cfg
			if opts.report != "" {
				c.Output.ReportPath = opts.report
			}
			if opts.dataDir != "" {
				c.Input.Dir = opts.dataDir
			}
			if opts.metrics != "" {
				c.Output.MetricsPath = opts.metrics
			}
			return runPipeline(cmd.Context(), c, opts.dryRun)
		},
	}

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Clean and report without touching the database")
	cmd.Flags().StringVar(&opts.report, "report", "", "Report output path (overrides FLEXIMART_REPORT_PATH)")
	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "", "Directory holding the raw CSV files (overrides FLEXIMART_DATA_DIR)")
	cmd.Flags().StringVar(&opts.metrics, "metrics", "", "Prometheus textfile output path (overrides FLEXIMART_METRICS_PATH)")
	return cmd
}

func newSchemaCmd(cfg **config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the target tables if they do not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := *cfg
			pool, err := connect(cmd.Context(), c.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := core.NewService(pool, c, nil).EnsureSchema(cmd.Context()); err != nil {
				return err
			}
			slog.Info("schema ready", "database", c.Database.Name)
			return nil
		},
	}
}

func newResetCmd(cfg **config.Config) *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Truncate every target table and restart identities",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return errors.New("reset is destructive: pass --yes to confirm")
			}
			c := *cfg
			pool, err := connect(cmd.Context(), c.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := core.ResetTables(cmd.Context(), pool); err != nil {
				return err
			}
			slog.Info("tables reset", "database", c.Database.Name)
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirm, "yes", false, "Confirm truncation of all target tables")
	return cmd
}

func runPipeline(ctx context.Context, cfg *config.Config, dryRun bool) error {
	slog.Info("configuration loaded", "config", cfg.String())

	var db core.DB
	if !dryRun {
		pool, err := connect(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()
		db = pool
	}

	rep, err := core.NewService(db, cfg, metrics.NewRegistry()).Run(ctx, core.RunOptions{DryRun: dryRun})
	if err != nil {
		return err
	}

	slog.Info("data quality report written",
		"path", cfg.Output.ReportPath,
		"run_id", rep.RunID,
		"customers", rep.Customers.Loaded,
		"products", rep.Products.Loaded,
		"orders", rep.Sales.OrdersLoaded,
	)
	return nil
}

// connect opens a small pool and verifies it within the connect timeout.
func connect(ctx context.Context, dbCfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dbCfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.MaxConns = 2
	poolConfig.MinConns = 0

	connectCtx, cancel := context.WithTimeout(ctx, dbCfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("connected to database", "name", poolConfig.ConnConfig.Database, "host", poolConfig.ConnConfig.Host)
	return pool, nil
}
