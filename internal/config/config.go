// Package config provides centralized configuration management for the ETL run.
// It loads configuration from defaults, an optional YAML file and environment
// variables, and validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"net/url"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Scalar settings can be configured via environment variables.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Input    InputConfig    `yaml:"input"`
	Output   OutputConfig   `yaml:"output"`
	Cleaning CleaningConfig `yaml:"cleaning"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	// Host is the database server host (default: 127.0.0.1)
	Host string `yaml:"host" env:"FLEXIMART_DB_HOST" default:"127.0.0.1"`

	// Port is the database server port (default: 5432)
	Port int `yaml:"port" env:"FLEXIMART_DB_PORT" default:"5432"`

	// User is the database role (default: postgres)
	User string `yaml:"user" env:"FLEXIMART_DB_USER" default:"postgres"`

	// Password for User (default: postgres)
	Password string `yaml:"password" env:"FLEXIMART_DB_PASSWORD" default:"postgres"`

	// Name is the target database (default: fleximart)
	Name string `yaml:"name" env:"FLEXIMART_DB_NAME" default:"fleximart"`

	// SSLMode is passed through as the sslmode connection parameter (default: disable)
	SSLMode string `yaml:"sslmode" env:"FLEXIMART_DB_SSLMODE" default:"disable"`

	// URL overrides the discrete settings above when set.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `yaml:"url" env:"DATABASE_URL" envAlt:"DB_URL"`

	// ConnectTimeout bounds pool creation and the initial ping (default: 10s)
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"FLEXIMART_DB_CONNECT_TIMEOUT" default:"10s"`

	// LoadTimeout bounds the whole truncate-and-reload transaction (default: 5m)
	LoadTimeout time.Duration `yaml:"load_timeout" env:"FLEXIMART_LOAD_TIMEOUT" default:"5m"`

	// EnsureSchema creates the target tables before loading when true (default: true)
	EnsureSchema bool `yaml:"ensure_schema" env:"FLEXIMART_ENSURE_SCHEMA" default:"true"`
}

// InputConfig locates the three raw CSV files.
type InputConfig struct {
	Dir       string `yaml:"dir" env:"FLEXIMART_DATA_DIR" default:"data"`
	Customers string `yaml:"customers" env:"FLEXIMART_CUSTOMERS_FILE" default:"customers_raw.csv"`
	Products  string `yaml:"products" env:"FLEXIMART_PRODUCTS_FILE" default:"products_raw.csv"`
	Sales     string `yaml:"sales" env:"FLEXIMART_SALES_FILE" default:"sales_raw.csv"`
}

// OutputConfig holds report and metrics destinations.
type OutputConfig struct {
	// ReportPath is where the data quality report is written
	ReportPath string `yaml:"report_path" env:"FLEXIMART_REPORT_PATH" default:"data_quality_report.txt"`

	// MetricsPath is an optional Prometheus textfile; empty disables it
	MetricsPath string `yaml:"metrics_path" env:"FLEXIMART_METRICS_PATH"`
}

// CleaningConfig tunes the field normalizers.
type CleaningConfig struct {
	// PlaceholderDomain is used for synthesized emails: unknown+<id>@<domain>
	PlaceholderDomain string `yaml:"placeholder_domain" env:"FLEXIMART_PLACEHOLDER_DOMAIN" default:"fleximart.local"`

	// PhoneCountryCode is stripped from and prefixed to phone numbers (default: 91)
	PhoneCountryCode string `yaml:"phone_country_code" env:"FLEXIMART_PHONE_COUNTRY_CODE" default:"91"`

	// Categories extends the canonical category table (lowercase key -> label).
	// Only settable from the YAML file.
	Categories map[string]string `yaml:"categories"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `yaml:"level" env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `yaml:"format" env:"LOG_FORMAT" default:"text"`
}

// ConnString returns the PostgreSQL connection URL.
// An explicit URL wins over the discrete host/port/user settings.
func (c *DatabaseConfig) ConnString() string {
	if c.URL != "" {
		return c.URL
	}

	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	if c.ConnectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(c.ConnectTimeout.Seconds())))
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// CustomersPath returns the resolved customers file path.
func (c *InputConfig) CustomersPath() string { return c.resolve(c.Customers) }

// ProductsPath returns the resolved products file path.
func (c *InputConfig) ProductsPath() string { return c.resolve(c.Products) }

// SalesPath returns the resolved sales file path.
func (c *InputConfig) SalesPath() string { return c.resolve(c.Sales) }

func (c *InputConfig) resolve(name string) string {
	if filepath.IsAbs(name) || c.Dir == "" {
		return name
	}
	return filepath.Join(c.Dir, name)
}
