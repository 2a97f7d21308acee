package core

// cleaner.go turns raw rows into cleaned entities. Row defects never raise
// errors: each row yields either a value or a DropReason, and every repair
// or drop is counted in the run's Report.

import (
	"sort"
	"strconv"
	"strings"

	"github.com/JonMunkholm/fleximart/internal/config"
	"github.com/shopspring/decimal"
)

// Cleaner applies field normalization and per-entity repair rules.
type Cleaner struct {
	norm              *Normalizer
	placeholderDomain string
}

// NewCleaner builds a Cleaner from cleaning config.
func NewCleaner(cfg config.CleaningConfig) *Cleaner {
	domain := cfg.PlaceholderDomain
	if domain == "" {
		domain = "fleximart.local"
	}
	return &Cleaner{norm: NewNormalizer(cfg), placeholderDomain: domain}
}

// PlaceholderEmail returns the deterministic address used for customers
// without a usable email.
func (c *Cleaner) PlaceholderEmail(customerKey string) string {
	return "unknown+" + strings.ToLower(customerKey) + "@" + c.placeholderDomain
}

// uniquePlaceholder returns PlaceholderEmail(key), suffixed with a counter
// when keys differing only in case would otherwise collide.
func (c *Cleaner) uniquePlaceholder(key string, taken map[string]struct{}) string {
	email := c.PlaceholderEmail(key)
	for n := 2; ; n++ {
		if _, dup := taken[email]; !dup {
			return email
		}
		email = c.PlaceholderEmail(key + "-" + strconv.Itoa(n))
	}
}

// Dedupe keeps the first row for each key and returns how many were removed.
// Rows with an empty key are never treated as duplicates of each other.
// Applying Dedupe to its own output removes nothing.
func Dedupe[T any](rows []T, key func(T) string) ([]T, int) {
	seen := make(map[string]struct{}, len(rows))
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		k := key(row)
		if k != "" {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
		}
		out = append(out, row)
	}
	return out, len(rows) - len(out)
}

// CleanCustomers dedupes customers, fills or repairs emails and normalizes
// phone, city, names and registration date.
func (c *Cleaner) CleanCustomers(raw []CustomerRaw, rep *Report) []Customer {
	rep.Customers.Raw = len(raw)

	rows, dups := Dedupe(raw, func(r CustomerRaw) string { return r.CustomerID })
	rep.Customers.Duplicates = dups

	emails := make(map[string]struct{}, len(rows))
	out := make([]Customer, 0, len(rows))

	for _, r := range rows {
		if r.CustomerID == "" {
			rep.Customers.MissingKey++
			continue
		}

		cust := Customer{
			Key:       r.CustomerID,
			FirstName: NormalizeSpaces(r.FirstName),
			LastName:  NormalizeSpaces(r.LastName),
			City:      NormalizeCity(r.City),
		}

		email := strings.ToLower(NormalizeSpaces(r.Email))
		if email == "" {
			email = c.uniquePlaceholder(r.CustomerID, emails)
			rep.Customers.EmailsFilled++
		} else if _, taken := emails[email]; taken {
			email = c.uniquePlaceholder(r.CustomerID, emails)
			rep.Customers.EmailsDeduplicated++
		}
		emails[email] = struct{}{}
		cust.Email = email

		if r.Phone != "" {
			if phone, ok := c.norm.Phone(r.Phone); ok {
				cust.Phone = phone
			} else {
				rep.Customers.PhonesCleared++
			}
		}

		if r.RegistrationDate != "" {
			if d, ok := ParseFlexibleDate(r.RegistrationDate); ok {
				cust.RegistrationDate = d
			} else {
				rep.Customers.DatesCleared++
			}
		}

		out = append(out, cust)
	}

	return out
}

// parsePrice returns a usable price: parsed, rounded to 2 places and positive.
func parsePrice(s string) (decimal.Decimal, bool) {
	d, ok := ParseDecimal(s)
	if !ok {
		return decimal.Decimal{}, false
	}
	d = RoundFixedPoint2(d)
	if !d.IsPositive() {
		return decimal.Decimal{}, false
	}
	return d, true
}

// CategoryMedians computes the median usable price per canonical category.
// For an even number of prices the median is the mean of the middle two.
func (c *Cleaner) CategoryMedians(raw []ProductRaw) map[string]decimal.Decimal {
	prices := make(map[string][]decimal.Decimal)
	for _, r := range raw {
		if p, ok := parsePrice(r.Price); ok {
			cat := c.norm.Category(r.Category)
			prices[cat] = append(prices[cat], p)
		}
	}

	medians := make(map[string]decimal.Decimal, len(prices))
	for cat, ps := range prices {
		sort.Slice(ps, func(i, j int) bool { return ps[i].LessThan(ps[j]) })
		mid := len(ps) / 2
		if len(ps)%2 == 1 {
			medians[cat] = ps[mid]
		} else {
			medians[cat] = ps[mid-1].Add(ps[mid]).Div(decimal.NewFromInt(2))
		}
	}
	return medians
}

// CleanProducts dedupes products, normalizes name and category, imputes
// unusable prices from the category median and defaults bad stock to 0.
// A product with no usable price and no category peers is dropped.
func (c *Cleaner) CleanProducts(raw []ProductRaw, rep *Report) []Product {
	rep.Products.Raw = len(raw)

	rows, dups := Dedupe(raw, func(r ProductRaw) string { return r.ProductID })
	rep.Products.Duplicates = dups

	keyed := rows[:0:0]
	for _, r := range rows {
		if r.ProductID == "" {
			rep.Products.MissingKey++
			continue
		}
		keyed = append(keyed, r)
	}

	// medians only see rows that can be loaded
	medians := c.CategoryMedians(keyed)
	out := make([]Product, 0, len(keyed))

	for _, r := range keyed {

		prod := Product{
			Key:      r.ProductID,
			Name:     NormalizeSpaces(r.ProductName),
			Category: c.norm.Category(r.Category),
		}

		price, ok := parsePrice(r.Price)
		if !ok {
			median, found := medians[prod.Category]
			if !found {
				rep.Products.DroppedNoPrice++
				continue
			}
			price = RoundFixedPoint2(median)
			rep.Products.PricesImputed++
		}
		prod.Price = price

		stock, ok := ParseCount(r.StockQuantity)
		if !ok || stock < 0 {
			stock = 0
			rep.Products.StockDefaulted++
		}
		prod.Stock = stock

		out = append(out, prod)
	}

	return out
}

// CleanSale validates one sales row. Checks run in a fixed order and the
// first failure is the reason reported.
func (c *Cleaner) CleanSale(r SalesRaw) (Sale, DropReason) {
	if r.CustomerID == "" {
		return Sale{}, DropMissingCustomer
	}
	if r.ProductID == "" {
		return Sale{}, DropMissingProduct
	}

	qty, ok := ParseCount(r.Quantity)
	if !ok || qty <= 0 {
		return Sale{}, DropInvalidQuantity
	}

	unit, ok := ParseDecimal(r.UnitPrice)
	if !ok {
		return Sale{}, DropInvalidUnitPrice
	}

	date, ok := ParseFlexibleDate(r.TransactionDate)
	if !ok {
		return Sale{}, DropInvalidDate
	}

	status := TitleCase(NormalizeSpaces(r.Status))
	if status == "" {
		status = "Pending"
	}

	return Sale{
		TransactionKey: r.TransactionID,
		CustomerKey:    r.CustomerID,
		ProductKey:     r.ProductID,
		Quantity:       qty,
		UnitPrice:      RoundFixedPoint2(unit),
		Date:           date,
		Status:         status,
	}, DropNone
}

// CleanSales dedupes sales by transaction ID and validates each row.
func (c *Cleaner) CleanSales(raw []SalesRaw, rep *Report) []Sale {
	rep.Sales.Raw = len(raw)

	rows, dups := Dedupe(raw, func(r SalesRaw) string { return r.TransactionID })
	rep.Sales.Duplicates = dups

	out := make([]Sale, 0, len(rows))
	for _, r := range rows {
		sale, reason := c.CleanSale(r)
		if reason != DropNone {
			rep.dropSale(reason)
			continue
		}
		out = append(out, sale)
	}
	return out
}
