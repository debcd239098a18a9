package feasibility

import (
	"fmt"
	"time"
)

const (
	// MonthlyIndexPrefix prefixes every monthly feasibility index.
	MonthlyIndexPrefix = "feasibility_tool_"
	// AllMonthlyIndices targets every monthly index; used for IO discovery.
	AllMonthlyIndices = MonthlyIndexPrefix + "*"

	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

// ParseDate parses a YYYY-MM-DD calendar date in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidRequest, s)
	}
	return t, nil
}

// MonthlyIndexName returns the wildcard index name for the month of t.
func MonthlyIndexName(t time.Time) string {
	return MonthlyIndexPrefix + t.Format(monthLayout) + "*"
}

// MonthlyIndices returns one wildcard index per calendar month spanned by
// [start, end], oldest first. end must be strictly after start.
func MonthlyIndices(start, end time.Time) ([]string, error) {
	if !end.After(start) {
		return nil, ErrInvalidRange
	}

	first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)

	var indices []string
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		indices = append(indices, MonthlyIndexName(m))
	}
	return indices, nil
}
