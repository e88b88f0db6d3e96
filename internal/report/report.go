// Package report merges per-category time series into the canonical report
// table: one row per bucket, one column per category and a Total column.
package report

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/webshop-sales-report/internal/aggregate"
	"github.com/ginjaninja78/webshop-sales-report/internal/types"
)

// Folder name layouts.
const (
	DefaultLayout = "{first}_to_{last}"
	DailyLayout   = "Daily_report_{first}"
)

// ErrEmptyReport is returned when an identifier is asked of a report with no rows.
var ErrEmptyReport = errors.New("report has no rows")

// Row is one bucket of the report.
type Row struct {
	Key    aggregate.Key
	Values map[types.Category]decimal.Decimal
	Total  decimal.Decimal
}

// Value returns the amount of category, zero when absent.
func (r Row) Value(category types.Category) decimal.Decimal {
	if v, ok := r.Values[category]; ok {
		return v
	}
	return decimal.Zero
}

// Report is the merged table, rows in ascending key order.
type Report struct {
	Granularity aggregate.Granularity
	Columns     []types.Category
	Rows        []Row
}

// Merge outer-joins the series of every category. Missing values are zero,
// columns follow the canonical order (plus Other when it has a series) and
// Total is always recomputed from the columns.
func Merge(g aggregate.Granularity, series map[types.Category]aggregate.TimeSeries) *Report {
	columns := append([]types.Category{}, types.CanonicalCategories...)
	if _, ok := series[types.Other]; ok {
		columns = append(columns, types.Other)
	}

	union := make(aggregate.TimeSeries)
	for _, category := range columns {
		for k := range series[category] {
			union[k] = decimal.Zero
		}
	}

	report := &Report{Granularity: g, Columns: columns}
	for _, k := range union.Keys() {
		row := Row{Key: k, Values: make(map[types.Category]decimal.Decimal, len(columns))}
		for _, category := range columns {
			v, ok := series[category][k]
			if !ok {
				v = decimal.Zero
			}
			row.Values[category] = v
		}
		row.Total = sumColumns(row, columns)
		report.Rows = append(report.Rows, row)
	}

	return report
}

// Build aggregates records at g and merges the result.
func Build(records []types.Record, g aggregate.Granularity) *Report {
	return Merge(g, aggregate.AggregateByCategory(records, g))
}

// Totals returns the column sums and the grand total over all rows.
func (r *Report) Totals() (map[types.Category]decimal.Decimal, decimal.Decimal) {
	sums := make(map[types.Category]decimal.Decimal, len(r.Columns))
	grand := decimal.Zero
	for _, category := range r.Columns {
		sums[category] = decimal.Zero
	}
	for _, row := range r.Rows {
		for _, category := range r.Columns {
			sums[category] = sums[category].Add(row.Value(category))
		}
		grand = grand.Add(row.Total)
	}
	return sums, grand
}

// Check verifies that every Total equals the sum of its row's columns.
func (r *Report) Check() error {
	for _, row := range r.Rows {
		if want := sumColumns(row, r.Columns); !row.Total.Equal(want) {
			return fmt.Errorf("row %s: total %s does not match column sum %s", row.Key, row.Total, want)
		}
	}
	return nil
}

// First returns the earliest key. The report must not be empty.
func (r *Report) First() aggregate.Key { return r.Rows[0].Key }

// Last returns the latest key. The report must not be empty.
func (r *Report) Last() aggregate.Key { return r.Rows[len(r.Rows)-1].Key }

// Identifier names the report folder by filling {first} and {last} in
// layout with the dates of the first and last rows.
func (r *Report) Identifier(layout string) (string, error) {
	if len(r.Rows) == 0 {
		return "", ErrEmptyReport
	}
	if layout == "" {
		layout = DefaultLayout
	}
	first := r.First().Time().Format(types.DateLayout)
	last := r.Last().Time().Format(types.DateLayout)

	return strings.NewReplacer("{first}", first, "{last}", last).Replace(layout), nil
}

// Header returns the column titles including the key column and Total.
func (r *Report) Header() []string {
	header := []string{"Date"}
	for _, category := range r.Columns {
		header = append(header, category.Title())
	}
	return append(header, "Total")
}

func sumColumns(row Row, columns []types.Category) decimal.Decimal {
	total := decimal.Zero
	for _, category := range columns {
		total = total.Add(row.Value(category))
	}
	return total
}
