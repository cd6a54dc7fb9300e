// Package gaps computes which calendar days of a requested range a series
// does not cover yet.
package gaps

import (
	"time"

	"PriceStation/internal/model"
)

// Finder locates missing day ranges in a series.
type Finder struct {
	// SkipWeekends treats Saturdays and Sundays as neither present nor missing.
	// Use it for symbols that only publish on business days.
	SkipWeekends bool
}

// FindMissing returns the days of [start, end] missing from series, joined
// into ordered, disjoint closed intervals. An empty series yields the whole
// range; full coverage yields nil. Future days are the caller's concern.
func (f Finder) FindMissing(series model.Series, start, end time.Time) []model.DateRange {
	start, end = model.Day(start), model.Day(end)
	if end.Before(start) {
		return nil
	}

	present := make(map[time.Time]struct{}, series.Len())
	for _, o := range series.Observations {
		present[model.Day(o.Time)] = struct{}{}
	}

	var (
		out     []model.DateRange
		current *model.DateRange
	)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if f.SkipWeekends && isWeekend(d) {
			continue
		}
		if _, ok := present[d]; ok {
			if current != nil {
				out = append(out, *current)
				current = nil
			}
			continue
		}
		if current == nil {
			current = &model.DateRange{From: d, To: d}
			continue
		}
		current.To = d
	}
	if current != nil {
		out = append(out, *current)
	}
	return out
}

// FindMissing is Finder{}.FindMissing.
func FindMissing(series model.Series, start, end time.Time) []model.DateRange {
	return Finder{}.FindMissing(series, start, end)
}

func isWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
