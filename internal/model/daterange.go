package model

import (
	"fmt"
	"sort"
	"time"
)

// DateLayout is the text form of a calendar date everywhere in the app.
const DateLayout = "2006-01-02"

// Day truncates t to its calendar date at midnight UTC. The calendar date is
// read in t's own location, so a 22:00 bar stamped in New York stays on its day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date builds a calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// DateRange is an inclusive [Start, End] pair of calendar dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Gap is a range known to be missing from the store at query time.
type Gap = DateRange

// NewDateRange truncates both ends to calendar dates and rejects start > end.
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: Day(start), End: Day(end)}
	if r.Start.After(r.End) {
		return DateRange{}, fmt.Errorf("invalid date range: %s is after %s",
			r.Start.Format(DateLayout), r.End.Format(DateLayout))
	}
	return r, nil
}

// MustRange is NewDateRange for literals known to be valid.
func MustRange(start, end time.Time) DateRange {
	r, err := NewDateRange(start, end)
	if err != nil {
		panic(err)
	}
	return r
}

// SingleDay returns the degenerate range [d, d].
func SingleDay(d time.Time) DateRange {
	d = Day(d)
	return DateRange{Start: d, End: d}
}

// Contains reports whether d falls within the range.
func (r DateRange) Contains(d time.Time) bool {
	d = Day(d)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Days is the number of calendar days covered, inclusive.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Overlaps reports whether r and o share at least one day.
func (r DateRange) Overlaps(o DateRange) bool {
	return !r.End.Before(o.Start) && !o.End.Before(r.Start)
}

// Touches reports whether r and o overlap or sit on consecutive days.
func (r DateRange) Touches(o DateRange) bool {
	return !r.End.AddDate(0, 0, 1).Before(o.Start) && !o.End.AddDate(0, 0, 1).Before(r.Start)
}

// Clip returns the intersection of r and o; ok is false when they are disjoint.
func (r DateRange) Clip(o DateRange) (DateRange, bool) {
	if !r.Overlaps(o) {
		return DateRange{}, false
	}
	c := r
	if o.Start.After(c.Start) {
		c.Start = o.Start
	}
	if o.End.Before(c.End) {
		c.End = o.End
	}
	return c, true
}

func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}

// Coalesce sorts ranges and merges the ones that overlap or sit on
// consecutive days. The input slice is not modified.
func Coalesce(ranges []DateRange) []DateRange {
	if len(ranges) == 0 {
		return nil
	}
	sorted := make([]DateRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	out := []DateRange{sorted[0]}
	for _, r := range sorted[1:] {
		last := &out[len(out)-1]
		if last.Touches(r) {
			if r.End.After(last.End) {
				last.End = r.End
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

// Runs turns a set of dates into coalesced contiguous ranges.
func Runs(dates []time.Time) []DateRange {
	ranges := make([]DateRange, len(dates))
	for i, d := range dates {
		ranges[i] = SingleDay(d)
	}
	return Coalesce(ranges)
}
