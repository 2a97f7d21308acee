package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

// ErrUnreconciled is returned when raw counts do not equal loaded plus removed.
var ErrUnreconciled = errors.New("counts do not reconcile")

// CustomerStats counts what happened to customer rows.
type CustomerStats struct {
	Raw                int
	Duplicates         int
	MissingKey         int
	EmailsFilled       int
	EmailsDeduplicated int
	PhonesCleared      int
	DatesCleared       int
	Loaded             int
}

// ProductStats counts what happened to product rows.
type ProductStats struct {
	Raw            int
	Duplicates     int
	MissingKey     int
	PricesImputed  int
	StockDefaulted int
	DroppedNoPrice int
	Loaded         int
}

// SalesStats counts what happened to sales rows.
type SalesStats struct {
	Raw              int
	Duplicates       int
	Dropped          map[DropReason]int
	OrdersLoaded     int
	OrderItemsLoaded int
}

// DroppedTotal sums every sales drop reason.
func (s SalesStats) DroppedTotal() int {
	total := 0
	for _, n := range s.Dropped {
		total += n
	}
	return total
}

// Report accumulates counters for one run and renders the quality report.
type Report struct {
	RunID             string
	GeneratedAt       time.Time
	DryRun            bool
	PlaceholderDomain string

	Customers CustomerStats
	Products  ProductStats
	Sales     SalesStats
}

// NewReport returns an empty report for the given run.
func NewReport(runID, placeholderDomain string) *Report {
	return &Report{
		RunID:             runID,
		GeneratedAt:       time.Now().UTC(),
		PlaceholderDomain: placeholderDomain,
		Sales:             SalesStats{Dropped: make(map[DropReason]int)},
	}
}

func (r *Report) dropSale(reason DropReason) {
	if r.Sales.Dropped == nil {
		r.Sales.Dropped = make(map[DropReason]int)
	}
	r.Sales.Dropped[reason]++
}

// SetLoaded records the committed row counts.
func (r *Report) SetLoaded(res LoadResult) {
	r.Customers.Loaded = res.Customers
	r.Products.Loaded = res.Products
	r.Sales.OrdersLoaded = res.Orders
	r.Sales.OrderItemsLoaded = res.OrderItems
}

// Reconcile checks that every raw row is accounted for as loaded, duplicate
// or dropped, per entity.
func (r *Report) Reconcile() error {
	var errs []string

	c := r.Customers
	if got := c.Loaded + c.Duplicates + c.MissingKey; got != c.Raw {
		errs = append(errs, fmt.Sprintf("customers: raw %d != loaded %d + duplicates %d + dropped %d",
			c.Raw, c.Loaded, c.Duplicates, c.MissingKey))
	}

	p := r.Products
	if got := p.Loaded + p.Duplicates + p.MissingKey + p.DroppedNoPrice; got != p.Raw {
		errs = append(errs, fmt.Sprintf("products: raw %d != loaded %d + duplicates %d + dropped %d",
			p.Raw, p.Loaded, p.Duplicates, p.MissingKey+p.DroppedNoPrice))
	}

	s := r.Sales
	if got := s.OrdersLoaded + s.Duplicates + s.DroppedTotal(); got != s.Raw {
		errs = append(errs, fmt.Sprintf("sales: raw %d != orders %d + duplicates %d + dropped %d",
			s.Raw, s.OrdersLoaded, s.Duplicates, s.DroppedTotal()))
	}
	if s.OrderItemsLoaded != s.OrdersLoaded {
		errs = append(errs, fmt.Sprintf("sales: order items %d != orders %d", s.OrderItemsLoaded, s.OrdersLoaded))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrUnreconciled, strings.Join(errs, "; "))
	}
	return nil
}

type reportLine struct {
	label string
	value int
}

var dropLabels = map[DropReason]string{
	DropMissingCustomer:  "Sales missing customer_id dropped",
	DropMissingProduct:   "Sales missing product_id dropped",
	DropInvalidQuantity:  "Sales invalid quantity dropped",
	DropInvalidUnitPrice: "Sales invalid unit price dropped",
	DropInvalidDate:      "Sales invalid date dropped",
	DropUnknownCustomer:  "Sales unknown customer dropped",
	DropUnknownProduct:   "Sales unknown product dropped",
}

func (r *Report) sections() [][]reportLine {
	sales := []reportLine{
		{"Sales raw records", r.Sales.Raw},
		{"Sales duplicates removed", r.Sales.Duplicates},
	}
	for _, reason := range salesDropReasons {
		sales = append(sales, reportLine{dropLabels[reason], r.Sales.Dropped[reason]})
	}
	sales = append(sales,
		reportLine{"Orders loaded", r.Sales.OrdersLoaded},
		reportLine{"Order items loaded", r.Sales.OrderItemsLoaded},
	)

	return [][]reportLine{
		{
			{"Customers raw records", r.Customers.Raw},
			{"Customers duplicates removed", r.Customers.Duplicates},
			{"Customers missing customer_id dropped", r.Customers.MissingKey},
			{"Customers missing emails filled", r.Customers.EmailsFilled},
			{"Customers repeated emails replaced", r.Customers.EmailsDeduplicated},
			{"Customers invalid phones cleared", r.Customers.PhonesCleared},
			{"Customers invalid registration dates cleared", r.Customers.DatesCleared},
			{"Customers loaded", r.Customers.Loaded},
		},
		{
			{"Products raw records", r.Products.Raw},
			{"Products duplicates removed", r.Products.Duplicates},
			{"Products missing product_id dropped", r.Products.MissingKey},
			{"Products missing prices imputed", r.Products.PricesImputed},
			{"Products without category price dropped", r.Products.DroppedNoPrice},
			{"Products missing stock filled with 0", r.Products.StockDefaulted},
			{"Products loaded", r.Products.Loaded},
		},
		sales,
	}
}

// Render produces the plain-text report. Every counter is printed, zero or not.
func (r *Report) Render() string {
	sections := r.sections()

	width := 0
	for _, sec := range sections {
		for _, l := range sec {
			if w := runewidth.StringWidth(l.label); w > width {
				width = w
			}
		}
	}

	var b strings.Builder
	b.WriteString("FlexiMart Data Quality Report (Generated by ETL)\n\n")
	fmt.Fprintf(&b, "%s %s\n", runewidth.FillRight("Run ID:", width+1), r.RunID)
	fmt.Fprintf(&b, "%s %s\n", runewidth.FillRight("Generated:", width+1), r.GeneratedAt.Format(time.RFC3339))
	if r.DryRun {
		fmt.Fprintf(&b, "%s %s\n", runewidth.FillRight("Mode:", width+1), "dry run (nothing loaded)")
	}

	for _, sec := range sections {
		b.WriteString("\n")
		for _, l := range sec {
			fmt.Fprintf(&b, "%s %d\n", runewidth.FillRight(l.label+":", width+1), l.value)
		}
	}

	domain := r.PlaceholderDomain
	if domain == "" {
		domain = "fleximart.local"
	}
	b.WriteString("\nNotes:\n")
	fmt.Fprintf(&b, "- Missing customer emails were filled with deterministic placeholders: unknown+<customer_id>@%s\n", domain)
	b.WriteString("- Each sales transaction row becomes one order and one order_item (line-item grain).\n")
	b.WriteString("- Ambiguous dates such as 03-04-2024 are read month first.\n")

	return b.String()
}

// WriteFile writes the rendered report to path, replacing any previous file.
// The content goes to a temporary file in the same directory first.
func (r *Report) WriteFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".report-*")
	if err != nil {
		return fmt.Errorf("create report temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod report: %w", err)
	}
	if _, err := tmp.WriteString(r.Render()); err != nil {
		tmp.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename report: %w", err)
	}
	return nil
}
