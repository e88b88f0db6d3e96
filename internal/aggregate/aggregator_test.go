package aggregate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/webshop-sales-report/internal/types"
)

func at(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, time.Local)
}

func rec(category types.Category, t time.Time, amount string) types.Record {
	return types.Record{Category: category, Time: t, Amount: decimal.RequireFromString(amount)}
}

func TestKeyOf_Week(t *testing.T) {
	tests := []struct {
		date time.Time
		want int
	}{
		{at(2023, 1, 1, 0), 0},   // Sunday before the first Monday
		{at(2023, 1, 2, 0), 1},   // first Monday
		{at(2023, 1, 8, 0), 1},   // Sunday closes week 1
		{at(2023, 12, 1, 0), 48}, // Friday
		{at(2024, 1, 1, 0), 1},   // year starts on a Monday
		{at(2024, 12, 31, 0), 53},
	}
	for _, tt := range tests {
		t.Run(tt.date.Format("2006-01-02"), func(t *testing.T) {
			k := KeyOf(tt.date, Week)
			assert.Equal(t, tt.want, k.Period)
			assert.Equal(t, tt.date.Year(), k.Year)
		})
	}
}

func TestKey_String(t *testing.T) {
	ts := time.Date(2023, 12, 1, 10, 30, 15, 0, time.Local)

	assert.Equal(t, "2023-12-01 10:30:15", KeyOf(ts, Order).String())
	assert.Equal(t, "2023-12-01", KeyOf(ts, Day).String())
	assert.Equal(t, "2023-W48", KeyOf(ts, Week).String())
	assert.Equal(t, "2023-12", KeyOf(ts, Month).String())
	assert.Equal(t, "2023", KeyOf(ts, Year).String())
}

func TestKey_Time(t *testing.T) {
	ts := time.Date(2023, 12, 1, 10, 30, 15, 0, time.Local)

	assert.True(t, ts.Equal(KeyOf(ts, Order).Time()))
	assert.True(t, at(2023, 12, 1, 0).Equal(KeyOf(ts, Day).Time()))
	assert.True(t, at(2023, 11, 27, 0).Equal(KeyOf(ts, Week).Time()), "Monday of week 48")
	assert.True(t, at(2023, 12, 1, 0).Equal(KeyOf(ts, Month).Time()))
	assert.True(t, at(2023, 1, 1, 0).Equal(KeyOf(ts, Year).Time()))
	assert.True(t, at(2023, 1, 1, 0).Equal(KeyOf(at(2023, 1, 1, 5), Week).Time()), "week 0")
}

func TestParseGranularities(t *testing.T) {
	got, err := ParseGranularities([]string{"Day", "week", "day", " month "})
	require.NoError(t, err)
	assert.Equal(t, []Granularity{Day, Week, Month}, got)

	_, err = ParseGranularities([]string{"fortnight"})
	assert.Error(t, err)
}

func TestAggregate_Empty(t *testing.T) {
	series := Aggregate(nil, Day)
	assert.Empty(t, series)
	assert.True(t, series.Sum().IsZero())
	assert.Empty(t, series.Keys())
}

func TestAggregate_PreservesSum(t *testing.T) {
	records := []types.Record{
		rec(types.CreditCard, at(2023, 12, 1, 10), "125"),
		rec(types.CreditCard, at(2023, 12, 1, 15), "0.10"),
		rec(types.Cash, at(2023, 12, 2, 9), "50"),
		rec(types.CardTerminal, at(2023, 12, 31, 23), "19.95"),
		rec(types.CardTerminal, at(2024, 1, 1, 8), "0.20"),
	}
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Amount)
	}

	for _, g := range Granularities {
		t.Run(string(g), func(t *testing.T) {
			series := Aggregate(records, g)
			assert.True(t, total.Equal(series.Sum()), "sum %s != %s", series.Sum(), total)
		})
	}
}

func TestAggregate_Day(t *testing.T) {
	records := []types.Record{
		rec(types.CreditCard, at(2023, 12, 2, 9), "50"),
		rec(types.CreditCard, at(2023, 12, 1, 10), "100"),
		rec(types.Cash, at(2023, 12, 1, 15), "25"),
	}

	series := Aggregate(records, Day)
	keys := series.Keys()

	require.Len(t, keys, 2)
	assert.Equal(t, "2023-12-01", keys[0].String())
	assert.Equal(t, "2023-12-02", keys[1].String())
	assert.True(t, decimal.NewFromInt(125).Equal(series[keys[0]]))
}

func TestAggregate_Order(t *testing.T) {
	records := []types.Record{
		rec(types.CreditCard, at(2023, 12, 1, 10), "100"),
		rec(types.Cash, at(2023, 12, 1, 10), "5"),
		rec(types.Cash, at(2023, 12, 1, 11), "25"),
	}

	series := Aggregate(records, Order)
	require.Len(t, series, 2)
	assert.True(t, decimal.NewFromInt(105).Equal(series[KeyOf(at(2023, 12, 1, 10), Order)]))
}

func TestAggregate_NoYearAliasing(t *testing.T) {
	records := []types.Record{
		rec(types.Cash, at(2023, 1, 3, 0), "1"),
		rec(types.Cash, at(2024, 1, 2, 0), "2"),
	}

	weeks := Aggregate(records, Week)
	assert.Len(t, weeks, 2, "week 1 of 2023 and 2024 stay apart")

	months := Aggregate(records, Month)
	keys := months.Keys()
	require.Len(t, keys, 2)
	assert.Equal(t, "2023-01", keys[0].String())
	assert.Equal(t, "2024-01", keys[1].String())
}

func TestAggregateByCategory(t *testing.T) {
	records := []types.Record{
		rec(types.CreditCard, at(2023, 12, 1, 10), "100"),
		rec(types.CreditCard, at(2023, 12, 5, 10), "10"),
		rec(types.Cash, at(2023, 12, 1, 15), "25"),
	}

	byCategory := AggregateByCategory(records, Month)

	require.Len(t, byCategory, 2)
	assert.True(t, decimal.NewFromInt(110).Equal(byCategory[types.CreditCard].Sum()))
	assert.True(t, decimal.NewFromInt(25).Equal(byCategory[types.Cash].Sum()))
	_, ok := byCategory[types.CardTerminal]
	assert.False(t, ok)
}
