package core

// reader.go extracts the three raw CSV files into typed raw rows.
//
// Every cell is read as text and whitespace-normalized. No other
// interpretation happens here; parsing and repair belong to the cleaner.

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/JonMunkholm/fleximart/internal/config"
	"github.com/JonMunkholm/fleximart/internal/logging"
)

var (
	// ErrMissingInput is returned when a raw input file does not exist.
	ErrMissingInput = errors.New("missing input file")
	// ErrEmptyFile is returned when a raw input file has no header row.
	ErrEmptyFile = errors.New("empty file")
	// ErrInvalidCSV wraps CSV syntax errors.
	ErrInvalidCSV = errors.New("invalid csv")
)

// Extract reads customers, products and sales from the configured input
// files. All three files are checked before any is read, so a missing file
// fails the run without partial work.
func Extract(ctx context.Context, in config.InputConfig) (*RawDataset, error) {
	paths := []string{in.CustomersPath(), in.ProductsPath(), in.SalesPath()}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrMissingInput, p)
			}
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
	}

	customers, err := readFile(ctx, paths[0], customerFields, customerFromRow)
	if err != nil {
		return nil, err
	}
	products, err := readFile(ctx, paths[1], productFields, productFromRow)
	if err != nil {
		return nil, err
	}
	sales, err := readFile(ctx, paths[2], salesFields, salesFromRow)
	if err != nil {
		return nil, err
	}

	return &RawDataset{Customers: customers, Products: products, Sales: sales}, nil
}

func readFile[T any](ctx context.Context, path string, specs []FieldSpec, build func(HeaderIndex, []string) T) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingInput, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	counter := wrapForExtract(f)
	rows, err := ReadRows(ctx, counter, specs, build)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	logging.FromContext(ctx).Info("raw file extracted",
		"path", path,
		"rows", len(rows),
		"bytes", counter.BytesRead,
	)
	return rows, nil
}

// ReadRows parses CSV from r, validates the header against specs and builds
// one value per non-blank data row. Cells are whitespace-normalized before
// build sees them.
func ReadRows[T any](ctx context.Context, r io.Reader, specs []FieldSpec, build func(HeaderIndex, []string) T) ([]T, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}

	idx, err := ValidateHeaders(header, specs)
	if err != nil {
		return nil, err
	}

	var out []T
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
		}

		blank := true
		for i, cell := range record {
			record[i] = NormalizeSpaces(cell)
			if record[i] != "" {
				blank = false
			}
		}
		if blank {
			continue
		}

		out = append(out, build(idx, record))
	}

	return out, nil
}

func customerFromRow(idx HeaderIndex, row []string) CustomerRaw {
	return CustomerRaw{
		CustomerID:       idx.Get(row, "customer_id"),
		FirstName:        idx.Get(row, "first_name"),
		LastName:         idx.Get(row, "last_name"),
		Email:            idx.Get(row, "email"),
		Phone:            idx.Get(row, "phone"),
		City:             idx.Get(row, "city"),
		RegistrationDate: idx.Get(row, "registration_date"),
	}
}

func productFromRow(idx HeaderIndex, row []string) ProductRaw {
	return ProductRaw{
		ProductID:     idx.Get(row, "product_id"),
		ProductName:   idx.Get(row, "product_name"),
		Category:      idx.Get(row, "category"),
		Price:         idx.Get(row, "price"),
		StockQuantity: idx.Get(row, "stock_quantity"),
	}
}

func salesFromRow(idx HeaderIndex, row []string) SalesRaw {
	return SalesRaw{
		TransactionID:   idx.Get(row, "transaction_id"),
		CustomerID:      idx.Get(row, "customer_id"),
		ProductID:       idx.Get(row, "product_id"),
		Quantity:        idx.Get(row, "quantity"),
		UnitPrice:       idx.Get(row, "unit_price"),
		TransactionDate: idx.Get(row, "transaction_date"),
		Status:          idx.Get(row, "status"),
	}
}
