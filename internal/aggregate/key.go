package aggregate

import (
	"fmt"
	"strings"
	"time"
)

// Granularity is the time-bucketing resolution of a series.
type Granularity string

const (
	// Order keeps every distinct timestamp as its own bucket.
	Order Granularity = "order"
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
	Year  Granularity = "year"
)

// Granularities lists every granularity from finest to coarsest.
var Granularities = []Granularity{Order, Day, Week, Month, Year}

// ParseGranularity accepts the config spelling of a granularity.
func ParseGranularity(s string) (Granularity, error) {
	g := Granularity(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Granularities {
		if g == known {
			return g, nil
		}
	}
	return "", fmt.Errorf("unknown granularity %q", s)
}

// ParseGranularities parses a list, dropping duplicates.
func ParseGranularities(names []string) ([]Granularity, error) {
	var out []Granularity
	seen := make(map[Granularity]bool)
	for _, name := range names {
		g, err := ParseGranularity(name)
		if err != nil {
			return nil, err
		}
		if !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	return out, nil
}

// Key is a bucket of a series. Keys always carry the calendar year, so week
// and month buckets of different years never collide.
//
//	order: Period = day of year, Clock = seconds since midnight
//	day:   Period = day of year
//	week:  Period = Monday-first week of year; days before the first Monday are week 0
//	month: Period = month number
//	year:  Period = 0
type Key struct {
	Granularity Granularity
	Year        int
	Period      int
	Clock       int
}

// KeyOf returns the bucket of t at granularity g.
func KeyOf(t time.Time, g Granularity) Key {
	k := Key{Granularity: g, Year: t.Year()}

	switch g {
	case Order:
		k.Period = t.YearDay()
		k.Clock = t.Hour()*3600 + t.Minute()*60 + t.Second()
	case Day:
		k.Period = t.YearDay()
	case Week:
		k.Period = mondayWeek(t)
	case Month:
		k.Period = int(t.Month())
	}

	return k
}

// mondayWeek is the week number of t where weeks start on Monday and the
// days before the first Monday of the year form week 0.
func mondayWeek(t time.Time) int {
	yday := t.YearDay() - 1
	wday := (int(t.Weekday()) + 6) % 7
	return (yday + 7 - wday) / 7
}

// Time returns the first instant of the bucket in the local time zone.
// Week 0 starts on January 1st.
func (k Key) Time() time.Time {
	switch k.Granularity {
	case Order:
		return time.Date(k.Year, 1, k.Period, 0, 0, k.Clock, 0, time.Local)
	case Day:
		return time.Date(k.Year, 1, k.Period, 0, 0, 0, 0, time.Local)
	case Week:
		jan1 := time.Date(k.Year, 1, 1, 0, 0, 0, 0, time.Local)
		if k.Period == 0 {
			return jan1
		}
		firstMonday := jan1.AddDate(0, 0, (8-int(jan1.Weekday()))%7)
		return firstMonday.AddDate(0, 0, 7*(k.Period-1))
	case Month:
		return time.Date(k.Year, time.Month(k.Period), 1, 0, 0, 0, 0, time.Local)
	default:
		return time.Date(k.Year, 1, 1, 0, 0, 0, 0, time.Local)
	}
}

// String formats the key for report rows and folder names.
func (k Key) String() string {
	switch k.Granularity {
	case Order:
		return k.Time().Format("2006-01-02 15:04:05")
	case Day:
		return k.Time().Format("2006-01-02")
	case Week:
		return fmt.Sprintf("%d-W%02d", k.Year, k.Period)
	case Month:
		return fmt.Sprintf("%d-%02d", k.Year, k.Period)
	default:
		return fmt.Sprintf("%d", k.Year)
	}
}

// Less orders keys chronologically.
func (k Key) Less(other Key) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	if k.Period != other.Period {
		return k.Period < other.Period
	}
	return k.Clock < other.Clock
}
