// =============================================================================
// Webshop Sales Report - Tabular Realigner
// =============================================================================
//
// The webshop export writes the item description unquoted. When the
// description contains the field delimiter, the row gains extra cells and every
// later cell moves right. The realigner finds those rows by looking for known
// literals (the currency code) where they would land after the shift, glues the
// split description back together and moves the rest of the row left.
//
// WORKFLOW:
//   1. CountExcessColumns gives the largest shift any row can have
//   2. RepairShiftedRows runs once for each shift from 1 to that bound
//   3. Every row is cut (or padded) to the canonical width
//
// Realigner never modifies the table it is given.
//
// =============================================================================

package realign

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/webshop-sales-report/internal/types"
)

// CanonicalColumns is the width of a repaired export row.
const CanonicalColumns = 10

// =============================================================================
// SENTINELS
// =============================================================================

// Sentinel is a literal expected at a fixed column of an unshifted row.
type Sentinel struct {
	Column  int
	Literal string
}

// SentinelTable is the declarative list of column → literal expectations.
// A row is shifted by s when every sentinel is found s columns to the right.
type SentinelTable []Sentinel

// DefaultSentinels expects the currency code in column 8.
func DefaultSentinels(currency string) SentinelTable {
	return SentinelTable{{Column: 8, Literal: currency}}
}

// Matches reports whether all sentinels of the table sit exactly shift
// columns right of their home column in row.
func (t SentinelTable) Matches(row []string, shift int) bool {
	if len(t) == 0 {
		return false
	}
	for _, s := range t {
		idx := s.Column + shift
		if idx < 0 || idx >= len(row) {
			return false
		}
		if strings.TrimSpace(row[idx]) != s.Literal {
			return false
		}
	}
	return true
}

// =============================================================================
// REALIGNER
// =============================================================================

// Realigner repairs column-shift corruption in a raw export.
type Realigner struct {
	// Columns is the canonical row width. Default: CanonicalColumns
	Columns int

	// Sentinels locate shifted rows.
	Sentinels SentinelTable

	// Joiner glues the split description cells back together. It should be
	// the export delimiter, since that is what split them.
	Joiner string
}

// Result describes a realignment.
type Result struct {
	// Table is the repaired table, every row exactly Columns wide.
	Table [][]string

	// Excess is the number of columns beyond the canonical width.
	Excess int

	// Repaired counts repaired rows per shift amount.
	Repaired map[int]int

	// Unmatched lists rows that were wider than the canonical width but
	// matched no sentinel, shifted or not. Their cells are left in place
	// and the overflow is dropped.
	Unmatched []int
}

// New creates a realigner for the given sentinel table and joiner.
func New(sentinels SentinelTable, joiner string) *Realigner {
	return &Realigner{
		Columns:   CanonicalColumns,
		Sentinels: sentinels,
		Joiner:    joiner,
	}
}

// CountExcessColumns returns max(0, width-10), where width is the longest row.
func CountExcessColumns(table [][]string) int {
	return countExcess(table, CanonicalColumns)
}

func countExcess(table [][]string, columns int) int {
	width := 0
	for _, row := range table {
		if len(row) > width {
			width = len(row)
		}
	}
	if width <= columns {
		return 0
	}
	return width - columns
}

// RepairShiftedRows returns a copy of table in which every row shifted by
// exactly shift columns has its first shift+1 cells joined into one and the
// remaining cells moved left by shift. Other rows are copied unchanged.
func (r *Realigner) RepairShiftedRows(table [][]string, shift int) [][]string {
	out, _ := r.repair(table, shift)
	return out
}

// repair is RepairShiftedRows that also reports which rows it touched.
func (r *Realigner) repair(table [][]string, shift int) ([][]string, []int) {
	out := make([][]string, len(table))
	var touched []int

	for i, row := range table {
		if shift <= 0 || len(row) <= shift || !r.Sentinels.Matches(row, shift) {
			out[i] = cloneRow(row)
			continue
		}

		fixed := make([]string, 0, len(row)-shift)
		fixed = append(fixed, strings.Join(row[:shift+1], r.Joiner))
		fixed = append(fixed, row[shift+1:]...)
		out[i] = fixed
		touched = append(touched, i)
	}

	return out, touched
}

// Realign applies every shift from 1 to the excess column count, then cuts
// each row to the canonical width. Short rows are padded with empty cells.
//
// RETURNS:
//   - ErrMalformedExport when no row reaches the canonical width
func (r *Realigner) Realign(table [][]string) (*Result, error) {
	columns := r.Columns
	if columns <= 0 {
		columns = CanonicalColumns
	}

	width := 0
	for _, row := range table {
		if len(row) > width {
			width = len(row)
		}
	}
	if len(table) > 0 && width < columns {
		return nil, fmt.Errorf("%w: export has %d columns, expected at least %d",
			types.ErrMalformedExport, width, columns)
	}

	excess := countExcess(table, columns)
	result := &Result{
		Excess:   excess,
		Repaired: make(map[int]int),
	}

	current := table
	repaired := make(map[int]bool)
	for shift := 1; shift <= excess; shift++ {
		var touched []int
		current, touched = r.repair(current, shift)
		if len(touched) > 0 {
			result.Repaired[shift] = len(touched)
		}
		for _, i := range touched {
			repaired[i] = true
		}
	}

	result.Table = make([][]string, len(current))
	for i, row := range current {
		if len(table[i]) > columns && !repaired[i] && !r.Sentinels.Matches(table[i], 0) {
			result.Unmatched = append(result.Unmatched, i)
		}
		result.Table[i] = fitRow(row, columns)
	}

	return result, nil
}

// TotalRepaired returns the number of rows repaired across all shifts.
func (res *Result) TotalRepaired() int {
	total := 0
	for _, n := range res.Repaired {
		total += n
	}
	return total
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func cloneRow(row []string) []string {
	out := make([]string, len(row))
	copy(out, row)
	return out
}

// fitRow copies row, truncated or padded to width cells.
func fitRow(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}
