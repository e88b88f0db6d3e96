// =============================================================================
// Webshop Sales Report - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - csvparser / xlsxparser (RawExport)
//   - normalize, aggregate, report (Category, Record)
//   - pipeline and cmd (DateRange, error kinds)
//
// =============================================================================

package types

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ERROR KINDS
// =============================================================================
// Every error produced by the report engine wraps one of these kinds so that
// callers can branch with errors.Is.

var (
	// ErrMalformedExport means the export no longer matches the expected shape
	// (missing category marker, too few columns). The run must abort.
	ErrMalformedExport = errors.New("malformed export")

	// ErrInvalidAmount means a monetary cell could not be coerced to a
	// non-negative decimal.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidDate means a date cell matched none of the accepted formats.
	ErrInvalidDate = errors.New("invalid date")

	// ErrUnknownPaymentMethod means a payment-method label matched none of the
	// configured categories.
	ErrUnknownPaymentMethod = errors.New("unknown payment method")

	// ErrSourceUnavailable wraps any failure of the remote order source.
	ErrSourceUnavailable = errors.New("source unavailable")
)

// =============================================================================
// CATEGORY
// =============================================================================

// Category is the payment-method bucket a record belongs to.
type Category string

const (
	CreditCard   Category = "credit_card"
	CardTerminal Category = "card_terminal"
	Cash         Category = "cash"

	// Other only appears when the unknown payment method policy is "other".
	Other Category = "other"
)

// CanonicalCategories is the fixed report column order.
var CanonicalCategories = []Category{CreditCard, CardTerminal, Cash}

// Title returns the column heading used in written reports.
func (c Category) Title() string {
	switch c {
	case CreditCard:
		return "Credit card payment"
	case CardTerminal:
		return "Card terminal"
	case Cash:
		return "Cash payment"
	case Other:
		return "Other"
	default:
		return string(c)
	}
}

// ParseCategory accepts the config spelling of a category.
func ParseCategory(s string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CreditCard:
		return CreditCard, nil
	case CardTerminal:
		return CardTerminal, nil
	case Cash:
		return Cash, nil
	case Other:
		return Other, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// =============================================================================
// RECORDS
// =============================================================================

// Record is a normalized sale, identical for both data sources.
type Record struct {
	// Category is the payment-method bucket.
	Category Category

	// Time is the sale date. It carries the time of day when the source
	// provides one (API path) and midnight otherwise.
	Time time.Time

	// Amount is the VAT-inclusive amount. Always finite and non-negative.
	Amount decimal.Decimal
}

// =============================================================================
// RAW EXPORT
// =============================================================================

// RawExport is an export file cut into its three regions. Nothing has been
// repaired yet; data rows may still be shifted.
type RawExport struct {
	// SourceFile is the path the export was read from.
	SourceFile string

	// Header is the column header row.
	Header []string

	// Labels are the payment-method labels listed in the overview block,
	// in the order the export lists them.
	Labels []string

	// Rows are the data rows, variable length.
	Rows [][]string
}

// Width returns the number of cells in the longest data row.
func (e *RawExport) Width() int {
	width := 0
	for _, row := range e.Rows {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// =============================================================================
// DATE RANGE
// =============================================================================

// DateLayout is the format used for date flags and config values.
const DateLayout = "2006-01-02"

// DateRange is an inclusive start/end pair. It is built once and passed by
// value through a run.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange validates and builds a range.
func NewDateRange(start, end time.Time) (DateRange, error) {
	if end.Before(start) {
		return DateRange{}, fmt.Errorf("end date %s is before start date %s",
			end.Format(DateLayout), start.Format(DateLayout))
	}
	return DateRange{Start: start, End: end}, nil
}

// ParseDateRange parses two YYYY-MM-DD dates. The end date covers the whole day.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.ParseInLocation(DateLayout, start, time.Local)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	e, err := time.ParseInLocation(DateLayout, end, time.Local)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	return NewDateRange(s, EndOfDay(e))
}

// Today returns the range covering the current calendar day.
func Today(now time.Time) DateRange {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return DateRange{Start: start, End: EndOfDay(start)}
}

// Contains reports whether t lies within the range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// String formats the range for logs.
func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}

// EndOfDay returns the last representable second of t's day.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}
