// Package aggregate buckets normalized records by date and sums their
// amounts. Empty dates are not filled in.
package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/webshop-sales-report/internal/types"
)

// TimeSeries maps a bucket to the summed amount of its records.
type TimeSeries map[Key]decimal.Decimal

// Keys returns the buckets in chronological order.
func (s TimeSeries) Keys() []Key {
	keys := make([]Key, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// Sum returns the total of all buckets.
func (s TimeSeries) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, v := range s {
		total = total.Add(v)
	}
	return total
}

// Aggregate sums the amounts of records per bucket of granularity g,
// regardless of category. No input gives an empty series.
func Aggregate(records []types.Record, g Granularity) TimeSeries {
	series := make(TimeSeries)
	for _, r := range records {
		k := KeyOf(r.Time, g)
		series[k] = series[k].Add(r.Amount)
	}
	return series
}

// AggregateByCategory builds one series per category present in records.
func AggregateByCategory(records []types.Record, g Granularity) map[types.Category]TimeSeries {
	byCategory := make(map[types.Category][]types.Record)
	for _, r := range records {
		byCategory[r.Category] = append(byCategory[r.Category], r)
	}

	out := make(map[types.Category]TimeSeries, len(byCategory))
	for category, recs := range byCategory {
		out[category] = Aggregate(recs, g)
	}
	return out
}
