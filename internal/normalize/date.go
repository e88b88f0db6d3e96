package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/ginjaninja78/webshop-sales-report/internal/types"
)

// DateFormat selects the accepted layouts of a date cell.
type DateFormat int

const (
	// DayMonthYear is the export file format, e.g. "01-12-2023".
	DayMonthYear DateFormat = iota

	// Timestamp is the API format, e.g. "2023-12-01 10:00:00".
	Timestamp
)

var layouts = map[DateFormat][]string{
	DayMonthYear: {"2-1-2006", "2.1.2006", "2/1/2006"},
	Timestamp: {
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		time.RFC3339,
		"2006-01-02 15:04",
		"2006-01-02",
	},
}

// String returns the name of the format.
func (f DateFormat) String() string {
	switch f {
	case DayMonthYear:
		return "day-month-year"
	case Timestamp:
		return "timestamp"
	}
	return fmt.Sprintf("DateFormat(%d)", int(f))
}

// NormalizeDate parses cell in the local time zone. Day-month-year cells
// yield midnight; timestamps keep their time of day.
func NormalizeDate(cell string, format DateFormat) (time.Time, error) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty cell", types.ErrInvalidDate)
	}

	candidates, ok := layouts[format]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: unsupported format %s", types.ErrInvalidDate, format)
	}

	for _, layout := range candidates {
		t, err := time.ParseInLocation(layout, s, time.Local)
		if err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q is not a %s date", types.ErrInvalidDate, cell, format)
}
