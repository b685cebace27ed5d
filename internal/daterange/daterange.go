// Package daterange expands partial observation dates into inclusive
// [min, max] date bounds.
package daterange

import (
	"fmt"
	"regexp"
	"time"
)

// DateFormatError reports an input that matches none of the recognized
// date shapes.
type DateFormatError struct {
	Input string
}

func (e *DateFormatError) Error() string {
	return fmt.Sprintf("invalid date format %q: use YYYY, YYYY-MM, YYYY-MM-DD or a parseable timestamp", e.Input)
}

var (
	yearRE      = regexp.MustCompile(`^\d{4}$`)
	yearMonthRE = regexp.MustCompile(`^\d{4}-\d{2}$`)
	fullDateRE  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Fallback layouts for free-form event timestamps. Providers are not
// consistent about zone suffixes.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05Z0700",
}

// Expand converts a partial or full date string into inclusive date bounds.
//
//	YYYY       -> Jan 1 .. Dec 31 of that year
//	YYYY-MM    -> first .. last day of that month
//	YYYY-MM-DD -> that day twice
//	other      -> parsed timestamp twice, or *DateFormatError
func Expand(partial string) (time.Time, time.Time, error) {
	switch {
	case yearRE.MatchString(partial):
		min, err := time.Parse("2006", partial)
		if err != nil {
			return time.Time{}, time.Time{}, &DateFormatError{Input: partial}
		}
		max := min.AddDate(1, 0, -1)
		return min, max, nil

	case yearMonthRE.MatchString(partial):
		min, err := time.Parse("2006-01", partial)
		if err != nil {
			return time.Time{}, time.Time{}, &DateFormatError{Input: partial}
		}
		// Day 0 of the next month is the last day of this one; this
		// handles 28/29/30/31 and the December rollover.
		max := time.Date(min.Year(), min.Month()+1, 0, 0, 0, 0, 0, time.UTC)
		return min, max, nil

	case fullDateRE.MatchString(partial):
		day, err := time.Parse("2006-01-02", partial)
		if err != nil {
			return time.Time{}, time.Time{}, &DateFormatError{Input: partial}
		}
		return day, day, nil

	default:
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, partial); err == nil {
				return ts, ts, nil
			}
		}
		return time.Time{}, time.Time{}, &DateFormatError{Input: partial}
	}
}
