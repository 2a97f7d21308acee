package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileEnv names the environment variable that points at an optional YAML file.
const FileEnv = "FLEXIMART_CONFIG_FILE"

// ErrConfigFile is returned when the YAML file cannot be read or decoded.
var ErrConfigFile = errors.New("config file")

// Load reads configuration in three layers: struct-tag defaults, the YAML
// file named by FLEXIMART_CONFIG_FILE (if any), then environment variables.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	return LoadFile(os.Getenv(FileEnv))
}

// LoadFile is Load with an explicit YAML path. An empty path skips the file layer.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}
	root := reflect.ValueOf(cfg).Elem()

	if err := walkStruct(root, applyDefault); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := walkStruct(root, applyEnv); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration and panics on error.
// Use this only in main() where early termination is desired.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

func decodeFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfigFile, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil // empty file
		}
		return fmt.Errorf("%w %s: %v", ErrConfigFile, path, err)
	}
	return nil
}

type fieldFunc func(field reflect.StructField, v reflect.Value) error

// walkStruct recursively visits every tagged field.
func walkStruct(v reflect.Value, fn fieldFunc) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := walkStruct(fieldVal, fn); err != nil {
				return err
			}
			continue
		}

		if field.Tag.Get("env") == "" {
			continue
		}

		if err := fn(field, fieldVal); err != nil {
			return err
		}
	}

	return nil
}

func applyDefault(field reflect.StructField, v reflect.Value) error {
	def := field.Tag.Get("default")
	if def == "" {
		return nil
	}
	if err := setField(v, def); err != nil {
		return fmt.Errorf("invalid default for %s=%q: %w", field.Name, def, err)
	}
	return nil
}

func applyEnv(field reflect.StructField, v reflect.Value) error {
	envName := field.Tag.Get("env")
	envAlt := field.Tag.Get("envAlt")
	required := field.Tag.Get("required") == "true"

	// Try primary env var, then alternate
	value := os.Getenv(envName)
	if value == "" && envAlt != "" {
		value = os.Getenv(envAlt)
	}

	if value == "" {
		if required && v.IsZero() {
			return fmt.Errorf("required environment variable %s is not set", envName)
		}
		return nil
	}

	if err := setField(v, value); err != nil {
		return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
	}
	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	if c.Database.URL == "" {
		if c.Database.Host == "" {
			errs = append(errs, "FLEXIMART_DB_HOST is required when DATABASE_URL is unset")
		}
		if c.Database.Name == "" {
			errs = append(errs, "FLEXIMART_DB_NAME is required when DATABASE_URL is unset")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("FLEXIMART_DB_PORT (%d) must be 1-65535", c.Database.Port))
		}
	}
	if c.Database.ConnectTimeout <= 0 {
		errs = append(errs, "FLEXIMART_DB_CONNECT_TIMEOUT must be positive")
	}
	if c.Database.LoadTimeout <= 0 {
		errs = append(errs, "FLEXIMART_LOAD_TIMEOUT must be positive")
	}

	// Input validation
	if c.Input.Customers == "" || c.Input.Products == "" || c.Input.Sales == "" {
		errs = append(errs, "input file names must not be empty")
	}
	if c.Output.ReportPath == "" {
		errs = append(errs, "FLEXIMART_REPORT_PATH must not be empty")
	}

	// Cleaning validation
	if strings.TrimSpace(c.Cleaning.PlaceholderDomain) == "" {
		errs = append(errs, "FLEXIMART_PLACEHOLDER_DOMAIN must not be empty")
	}
	if _, err := strconv.Atoi(c.Cleaning.PhoneCountryCode); err != nil || c.Cleaning.PhoneCountryCode == "" {
		errs = append(errs, fmt.Sprintf("FLEXIMART_PHONE_COUNTRY_CODE (%q) must be digits", c.Cleaning.PhoneCountryCode))
	}
	for key, label := range c.Cleaning.Categories {
		if strings.TrimSpace(key) == "" || strings.TrimSpace(label) == "" {
			errs = append(errs, "cleaning.categories entries must have a non-empty key and label")
			break
		}
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// The database password and URL are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	if c.Database.URL != "" {
		b.WriteString("Database: {URL: [MASKED]}, ")
	} else {
		b.WriteString(fmt.Sprintf("Database: {Host: %q, Port: %d, User: %q, Password: [MASKED], Name: %q}, ",
			c.Database.Host, c.Database.Port, c.Database.User, c.Database.Name))
	}
	b.WriteString(fmt.Sprintf("Input: {Dir: %q}, ", c.Input.Dir))
	b.WriteString(fmt.Sprintf("Output: {ReportPath: %q, MetricsPath: %q}, ",
		c.Output.ReportPath, c.Output.MetricsPath))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
