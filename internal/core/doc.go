// Package core implements the FlexiMart batch ETL: it extracts three raw CSV
// files, cleans and validates them, and replaces the contents of a
// PostgreSQL schema in one transaction.
//
// This package holds all domain logic independent of the CLI. It can be
// driven by cmd/fleximart or by tests without modification.
//
// # Pipeline
//
// A run is strictly sequential:
//
//  1. [Extract] reads customers, products and sales as text rows. A missing
//     file or header column aborts the run before any transformation.
//  2. [Cleaner.Transform] dedupes each entity by natural key (first seen
//     wins), repairs fields and drops rows it cannot repair. Each drop carries
//     a [DropReason].
//  3. [FilterSales] removes sales that reference customers or products that
//     did not survive cleaning.
//  4. [LoadDataset] truncates the four target tables and inserts the dataset
//     inside one transaction. Surrogate ids come from the store.
//  5. The [Report] is reconciled and written only after a successful commit.
//
// # Field rules
//
// Phones become +91-XXXXXXXXXX or NULL. Dates are resolved by
// [ParseFlexibleDate], which reads ambiguous dates month first. Money is a
// [github.com/shopspring/decimal.Decimal] rounded half away from zero to two
// places. Missing product prices are imputed with the median price of the
// same category.
//
// # Error Handling
//
// Technical errors are mapped to operator messages using [MapError]. Each
// category has a code:
//
//   - DB001-DB010: database errors (constraints, connectivity, credentials)
//   - FILE001-FILE003, VAL001: input file errors
//   - RUN001-RUN004: cancellation, deadlines, reconciliation, mapping misses
//   - CFG001: configuration
package core
