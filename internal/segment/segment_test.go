package segment

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/webshop-sales-report/internal/types"
)

func order(id string) []string {
	return []string{"Item " + id, "01-12-2023", "10:00", id, "1", "100", "25", "125", "DKK", "emp"}
}

func filler(text string) []string {
	return []string{text, "", "", "", "", "", "", "", "", ""}
}

// buildTable lays out groups the way the export does: rows, a three row
// trailer and a marker for every labelled group, then the final group and
// its summary row.
func buildTable(labels []string, counts []int) [][]string {
	var table [][]string
	n := 0
	for i, count := range counts {
		for j := 0; j < count; j++ {
			n++
			table = append(table, order(fmt.Sprint(n)))
		}
		if i < len(labels) {
			table = append(table, filler("Subtotal"), filler(""), filler(""))
			table = append(table, filler(labels[i]))
		}
	}
	return append(table, filler("Total"))
}

func TestSegment_TwoCategories(t *testing.T) {
	labels := []string{"Kreditkort", "Kontant"}
	table := buildTable(labels, []int{2, 2, 1})

	blocks, err := Segment(table, labels)
	require.NoError(t, err)
	require.Len(t, blocks, 3)

	assert.Equal(t, "Kreditkort", blocks[0].Label)
	assert.Equal(t, "Kontant", blocks[1].Label)
	assert.Equal(t, FinalLabel, blocks[2].Label)

	var counts []int
	for _, b := range blocks {
		counts = append(counts, len(b.Rows))
	}
	assert.Equal(t, []int{2, 2, 1}, counts)

	assert.Equal(t, order("1"), blocks[0].Rows[0])
	assert.Equal(t, order("3"), blocks[1].Rows[0])
	assert.Equal(t, order("5"), blocks[2].Rows[0])
}

func TestSegment_RowCountsAddUp(t *testing.T) {
	tests := []struct {
		labels []string
		counts []int
	}{
		{nil, []int{4}},
		{[]string{"Kreditkort"}, []int{0, 3}},
		{[]string{"Kreditkort", "Kortterminal"}, []int{5, 0, 2}},
		{[]string{"A", "B", "C"}, []int{1, 2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.labels), func(t *testing.T) {
			table := buildTable(tt.labels, tt.counts)

			blocks, err := Segment(table, tt.labels)
			require.NoError(t, err)
			require.Len(t, blocks, len(tt.labels)+1)

			total := 0
			for i, b := range blocks {
				assert.Len(t, b.Rows, tt.counts[i])
				total += len(b.Rows)
			}
			assert.Equal(t, len(table), total+TrailerCount(len(tt.labels)))
		})
	}
}

func TestSegment_PreservesLabelOrder(t *testing.T) {
	// Markers appear in export order; asking for them in another order
	// fails because the first label is searched after the second marker.
	table := buildTable([]string{"Kreditkort", "Kontant"}, []int{1, 1, 1})

	_, err := Segment(table, []string{"Kontant", "Kreditkort"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrMalformedExport))
	assert.Contains(t, err.Error(), "Kreditkort")
}

func TestSegment_MissingMarker(t *testing.T) {
	table := buildTable([]string{"Kreditkort"}, []int{2, 1})

	_, err := Segment(table, []string{"Kreditkort", "Kortterminal"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrMalformedExport))
	assert.Contains(t, err.Error(), "Kortterminal")
}

func TestSegment_MarkerInsideTrailer(t *testing.T) {
	table := [][]string{filler(""), filler("Kreditkort"), order("1"), filler("Total")}

	_, err := Segment(table, []string{"Kreditkort"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrMalformedExport))
}

func TestSegment_MarkerMatchesTrimmedCell(t *testing.T) {
	table := [][]string{
		order("1"), filler(""), filler(""), filler(""),
		filler("  Kreditkort "),
		order("2"), filler("Total"),
	}

	blocks, err := Segment(table, []string{"Kreditkort"})
	require.NoError(t, err)
	assert.Len(t, blocks[0].Rows, 1)
	assert.Len(t, blocks[1].Rows, 1)
}

func TestSegment_EmptyTable(t *testing.T) {
	_, err := Segment(nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrMalformedExport))
}
