// Package schedule resolves lesson-class recurrence rules against calendar months.
package schedule

import (
	"fmt"
	"time"
)

// MonthLayout is the textual form of a Month, e.g. "2024-02".
const MonthLayout = "2006-01"

// Month is a calendar month anchored to a location.
type Month struct {
	Year  int
	Month time.Month
	Loc   *time.Location
}

// MonthOf returns the calendar month containing t, in t's location.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month(), Loc: t.Location()}
}

// ParseMonth parses "YYYY-MM" in loc.
func ParseMonth(s string, loc *time.Location) (Month, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(MonthLayout, s, loc)
	if err != nil {
		return Month{}, fmt.Errorf("parse month %q: %w", s, err)
	}
	return MonthOf(t), nil
}

// Start is midnight on the first day of the month.
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, m.location())
}

// End is the exclusive upper bound: the start of the following month.
func (m Month) End() time.Time {
	return m.Next().Start()
}

// Next returns the following month. time.Date normalizes December into January.
func (m Month) Next() Month {
	return MonthOf(time.Date(m.Year, m.Month+1, 1, 0, 0, 0, 0, m.location()))
}

// Contains reports whether t falls inside [Start, End).
func (m Month) Contains(t time.Time) bool {
	return !t.Before(m.Start()) && t.Before(m.End())
}

// Days is the number of days in the month.
func (m Month) Days() int {
	return m.End().AddDate(0, 0, -1).Day()
}

func (m Month) String() string {
	return m.Start().Format(MonthLayout)
}

func (m Month) location() *time.Location {
	if m.Loc == nil {
		return time.UTC
	}
	return m.Loc
}
