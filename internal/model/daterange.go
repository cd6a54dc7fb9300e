package model

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the day format used on the command line and in files.
const DateLayout = "2006-01-02"

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD date as a UTC day.
func ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// DateRange is a closed interval of calendar days.
type DateRange struct {
	From time.Time
	To   time.Time
}

// NewDateRange builds a range truncated to whole days.
func NewDateRange(from, to time.Time) DateRange {
	return DateRange{From: Day(from), To: Day(to)}
}

// Days returns the number of calendar days in the range, 0 when inverted.
func (r DateRange) Days() int {
	if r.To.Before(r.From) {
		return 0
	}
	return int(Day(r.To).Sub(Day(r.From)).Hours()/24) + 1
}

// Contains reports whether t falls on a day inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(Day(r.From)) && !d.After(Day(r.To))
}

func (r DateRange) String() string {
	return r.From.Format(DateLayout) + ".." + r.To.Format(DateLayout)
}

// TimeRange is a lookback window selected by the user.
type TimeRange string

const (
	Range1W  TimeRange = "1W"
	Range1M  TimeRange = "1M"
	Range3M  TimeRange = "3M"
	Range6M  TimeRange = "6M"
	Range1Y  TimeRange = "1Y"
	RangeAll TimeRange = "ALL"
)

var lookbackDays = map[TimeRange]int{
	Range1W: 7,
	Range1M: 30,
	Range3M: 90,
	Range6M: 180,
	Range1Y: 365,
}

// ParseTimeRange accepts 1W, 1M, 3M, 6M, 1Y and ALL, case-insensitively.
func ParseTimeRange(s string) (TimeRange, error) {
	r := TimeRange(strings.ToUpper(strings.TrimSpace(s)))
	if r == RangeAll {
		return r, nil
	}
	if _, ok := lookbackDays[r]; !ok {
		return "", fmt.Errorf("unknown time range %q (want 1W, 1M, 3M, 6M, 1Y or ALL)", s)
	}
	return r, nil
}

// Since returns the start of the window ending at now. ALL yields the zero time.
func (r TimeRange) Since(now time.Time) time.Time {
	days, ok := lookbackDays[r]
	if !ok {
		return time.Time{}
	}
	return now.AddDate(0, 0, -days)
}
