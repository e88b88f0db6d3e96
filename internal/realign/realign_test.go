package realign

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/webshop-sales-report/internal/types"
)

func canonicalRow(description string) []string {
	return []string{description, "01-12-2023", "10:00", "1", "1", "100", "25", "125", "DKK", "emp1"}
}

// shiftRow splits the description of a canonical row into shift+1 cells the
// way the export does when the description holds the delimiter.
func shiftRow(row []string, shift int) []string {
	parts := strings.SplitN(row[0], ",", shift+1)
	out := append([]string{}, parts...)
	return append(out, row[1:]...)
}

func TestCountExcessColumns(t *testing.T) {
	tests := []struct {
		name  string
		table [][]string
		want  int
	}{
		{"empty", nil, 0},
		{"canonical", [][]string{canonicalRow("A")}, 0},
		{"narrow", [][]string{{"a", "b"}}, 0},
		{"one overflow", [][]string{canonicalRow("A"), append(canonicalRow("A"), "x")}, 1},
		{"three overflow", [][]string{append(canonicalRow("A"), "x", "y", "z")}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CountExcessColumns(tt.table))
		})
	}
}

func TestSentinelTable_Matches(t *testing.T) {
	sentinels := DefaultSentinels("DKK")
	row := canonicalRow("A")

	assert.True(t, sentinels.Matches(row, 0))
	assert.False(t, sentinels.Matches(row, 1))

	shifted := append([]string{"A", "B"}, row[1:]...)
	assert.True(t, sentinels.Matches(shifted, 1))
	assert.False(t, sentinels.Matches(shifted, 0))
	assert.False(t, sentinels.Matches(shifted, 5), "index past the row")

	assert.False(t, SentinelTable{}.Matches(row, 0), "empty table never matches")

	multi := SentinelTable{{Column: 8, Literal: "DKK"}, {Column: 9, Literal: "emp1"}}
	assert.True(t, multi.Matches(row, 0))
	row[9] = "emp2"
	assert.False(t, multi.Matches(row, 0))
}

func TestRepairShiftedRows_RoundTrip(t *testing.T) {
	description := "Widget A, long name, with, many, commas"
	want := canonicalRow(description)
	r := New(DefaultSentinels("DKK"), ",")

	for shift := 0; shift <= 4; shift++ {
		t.Run(fmt.Sprintf("shift %d", shift), func(t *testing.T) {
			shifted := shiftRow(want, shift)
			require.Len(t, shifted, 10+shift)

			got := r.RepairShiftedRows([][]string{shifted}, shift)
			require.Len(t, got, 1)
			assert.Equal(t, want, got[0])
		})
	}
}

func TestRepairShiftedRows_LeavesOtherRowsAlone(t *testing.T) {
	r := New(DefaultSentinels("DKK"), ",")
	aligned := canonicalRow("Plain")
	shiftedTwice := shiftRow(canonicalRow("a,b,c"), 2)

	table := [][]string{aligned, shiftedTwice}
	got := r.RepairShiftedRows(table, 1)

	assert.Equal(t, aligned, got[0])
	assert.Equal(t, shiftedTwice, got[1], "a row shifted by 2 is not touched by the shift 1 pass")
}

func TestRepairShiftedRows_DoesNotMutateInput(t *testing.T) {
	r := New(DefaultSentinels("DKK"), ",")
	row := shiftRow(canonicalRow("a,b"), 1)
	original := append([]string{}, row...)

	got := r.RepairShiftedRows([][]string{row}, 1)

	assert.Equal(t, original, row)
	got[0][0] = "changed"
	assert.Equal(t, original, row)
}

func TestRealign_MixedShifts(t *testing.T) {
	r := New(DefaultSentinels("DKK"), ",")
	table := [][]string{
		canonicalRow("Plain"),
		shiftRow(canonicalRow("One, comma"), 1),
		shiftRow(canonicalRow("Two, com, mas"), 2),
		{"", "", "", "", "", "", "", "", "", ""},
	}

	res, err := r.Realign(table)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Excess)
	assert.Equal(t, map[int]int{1: 1, 2: 1}, res.Repaired)
	assert.Equal(t, 2, res.TotalRepaired())
	assert.Empty(t, res.Unmatched)

	require.Len(t, res.Table, 4)
	assert.Equal(t, canonicalRow("Plain"), res.Table[0])
	assert.Equal(t, canonicalRow("One, comma"), res.Table[1])
	assert.Equal(t, canonicalRow("Two, com, mas"), res.Table[2])
	for _, row := range res.Table {
		assert.Len(t, row, CanonicalColumns)
	}
}

func TestRealign_OverflowAfterSentinelIsDropped(t *testing.T) {
	r := New(DefaultSentinels("DKK"), ",")
	table := [][]string{
		{"Widget A, long name", "01-12-2023", "10:00", "1", "1", "100", "25", "125", "DKK", "emp1", "extra"},
	}

	res, err := r.Realign(table)
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"Widget A, long name", "01-12-2023", "10:00", "1", "1", "100", "25", "125", "DKK", "emp1"},
	}, res.Table)
	assert.Empty(t, res.Repaired)
	assert.Empty(t, res.Unmatched)
}

func TestRealign_UnmatchedOverflow(t *testing.T) {
	r := New(DefaultSentinels("DKK"), ",")
	row := []string{"a", "b", "c", "d", "e", "f", "g", "h", "EUR", "i", "j"}

	res, err := r.Realign([][]string{canonicalRow("ok"), row})
	require.NoError(t, err)

	assert.Equal(t, []int{1}, res.Unmatched)
	assert.Equal(t, row[:10], res.Table[1])
}

func TestRealign_PadsShortRows(t *testing.T) {
	r := New(DefaultSentinels("DKK"), ",")
	res, err := r.Realign([][]string{canonicalRow("ok"), {"Subtotal"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"Subtotal", "", "", "", "", "", "", "", "", ""}, res.Table[1])
}

func TestRealign_NarrowExport(t *testing.T) {
	r := New(DefaultSentinels("DKK"), ",")
	_, err := r.Realign([][]string{{"a", "b", "c"}})

	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrMalformedExport))
}

func TestRealign_Empty(t *testing.T) {
	r := New(DefaultSentinels("DKK"), ",")
	res, err := r.Realign(nil)

	require.NoError(t, err)
	assert.Empty(t, res.Table)
	assert.Zero(t, res.Excess)
}
