// Package segment splits a repaired export into one block of order rows per
// payment method.
//
// The export lists the orders of each payment method one after another. Each
// group ends with a three row trailer (subtotal and blank rows) followed by a
// marker row whose first cell is the payment-method label of that group.
// The order of the labels in the overview block decides which group is which.
// The last group has no marker and ends with a single summary row.
package segment

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/webshop-sales-report/internal/types"
)

const (
	// TrailerRows precede every marker row.
	TrailerRows = 3

	// FinalTrailerRows close the table after the last group.
	FinalTrailerRows = 1

	// FinalLabel names the implicit last block.
	FinalLabel = "final"
)

// Block is the order rows of one payment method.
type Block struct {
	Label string
	Rows  [][]string
}

// Segment cuts table into len(labels)+1 blocks. Labels are consumed in the
// order given; each one must appear as the first cell of a later row than
// the previous one. The returned blocks share row slices with table.
func Segment(table [][]string, labels []string) ([]Block, error) {
	blocks := make([]Block, 0, len(labels)+1)
	remaining := table
	consumed := 0

	for _, label := range labels {
		marker := findMarker(remaining, label)
		if marker < 0 {
			return nil, fmt.Errorf("%w: no marker row for payment method %q",
				types.ErrMalformedExport, label)
		}
		if marker < TrailerRows {
			return nil, fmt.Errorf("%w: marker row for %q at row %d leaves no room for the %d row trailer",
				types.ErrMalformedExport, label, consumed+marker, TrailerRows)
		}

		blocks = append(blocks, Block{
			Label: label,
			Rows:  remaining[:marker-TrailerRows],
		})
		remaining = remaining[marker+1:]
		consumed += marker + 1
	}

	if len(remaining) < FinalTrailerRows {
		return nil, fmt.Errorf("%w: export ends without the closing summary row",
			types.ErrMalformedExport)
	}
	blocks = append(blocks, Block{
		Label: FinalLabel,
		Rows:  remaining[:len(remaining)-FinalTrailerRows],
	})

	return blocks, nil
}

// TrailerCount is the number of non-data rows Segment drops for k labels.
func TrailerCount(k int) int {
	return k*(TrailerRows+1) + FinalTrailerRows
}

func findMarker(rows [][]string, label string) int {
	want := strings.TrimSpace(label)
	for i, row := range rows {
		if len(row) > 0 && strings.TrimSpace(row[0]) == want {
			return i
		}
	}
	return -1
}
