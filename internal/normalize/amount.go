package normalize

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/webshop-sales-report/internal/types"
)

// currencyMarkers are removed from amount cells before parsing. Longer
// markers come first so "kr." is not left as ".".
var currencyMarkers = []string{"DKK", "dkk", "kr.", "Kr.", "kr", "Kr"}

// NormalizeAmount coerces a monetary cell to a non-negative decimal.
//
// Whitespace (including non-breaking spaces) and currency markers are
// removed. When both '.' and ',' appear, the one that appears last is the
// decimal separator and the other is thousands grouping. A lone separator
// is the decimal separator; a separator that repeats is thousands grouping.
func NormalizeAmount(cell string) (decimal.Decimal, error) {
	s := cleanAmount(cell)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty cell", types.ErrInvalidAmount)
	}

	normalized, err := resolveSeparators(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q: %v", types.ErrInvalidAmount, cell, err)
	}

	if !isPlainNumber(normalized) {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", types.ErrInvalidAmount, cell)
	}

	d, err := decimal.NewFromString(strings.TrimPrefix(normalized, "+"))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q: %v", types.ErrInvalidAmount, cell, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %q is negative", types.ErrInvalidAmount, cell)
	}

	return d, nil
}

// NormalizeRate parses a VAT rate such as "0.25". Rates are plain decimals
// from the API and must not be negative.
func NormalizeRate(cell string) (decimal.Decimal, error) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return decimal.Zero, nil
	}
	s = strings.Replace(s, ",", ".", 1)
	if !isPlainNumber(s) {
		return decimal.Zero, fmt.Errorf("%w: VAT rate %q is not a number", types.ErrInvalidAmount, cell)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: VAT rate %q: %v", types.ErrInvalidAmount, cell, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: VAT rate %q is negative", types.ErrInvalidAmount, cell)
	}
	return d, nil
}

func cleanAmount(cell string) string {
	s := cell
	for _, marker := range currencyMarkers {
		s = strings.ReplaceAll(s, marker, "")
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\u00a0', '\u202f', '\'':
			return -1
		}
		return r
	}, s)
}

func resolveSeparators(s string) (string, error) {
	dots := strings.Count(s, ".")
	commas := strings.Count(s, ",")

	switch {
	case dots > 0 && commas > 0:
		decimalSep, groupSep := ",", "."
		if strings.LastIndex(s, ".") > strings.LastIndex(s, ",") {
			decimalSep, groupSep = ".", ","
		}
		if strings.Count(s, decimalSep) > 1 {
			return "", fmt.Errorf("decimal separator %q appears more than once", decimalSep)
		}
		s = strings.ReplaceAll(s, groupSep, "")
		return strings.Replace(s, decimalSep, ".", 1), nil

	case commas == 1:
		return strings.Replace(s, ",", ".", 1), nil

	case commas > 1:
		return strings.ReplaceAll(s, ",", ""), nil

	case dots > 1:
		return strings.ReplaceAll(s, ".", ""), nil
	}

	return s, nil
}

// isPlainNumber accepts an optional sign, digits and at most one '.'.
func isPlainNumber(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '-' || s[0] == '+' {
		s = s[1:]
	}
	digits, dots := 0, 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}
