package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// TIME POINT - Calendar date (leave cycles are always day-granular)
// =============================================================================

// DateLayout is the ISO date format used in storage and on the wire.
const DateLayout = "2006-01-02"

// TimePoint is a calendar date in UTC. The clock part is always midnight so
// two TimePoints for the same day compare equal regardless of how they were
// constructed.
type TimePoint struct {
	Time time.Time
}

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar date. The date is taken in the
// timestamp's own location, so 2024-02-01T23:30+08:00 is Feb 1, not Jan 31.
func DateOf(t time.Time) TimePoint {
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (TimePoint, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return TimePoint{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.Time.Before(other.Time) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.Time.Equal(other.Time) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.Time.After(other.Time) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return !tp.Before(other) }

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint { return TimePoint{Time: tp.Time.AddDate(0, 0, n)} }

// AddMonths adds n months, clamping to the last day of the target month
// instead of overflowing into the next one (Aug 31 + 6 months = Feb 28/29).
func (tp TimePoint) AddMonths(n int) TimePoint {
	total := int(tp.Month()) - 1 + n
	year := tp.Year() + total/12
	month := total % 12
	if month < 0 {
		month += 12
		year--
	}
	target := time.Month(month + 1)
	day := tp.Day()
	if last := EndOfMonth(year, target).Day(); day > last {
		day = last
	}
	return NewTimePoint(year, target, day)
}

// AddYears adds n years with the same month-end clamping as AddMonths,
// so a Feb 29 anchor lands on Feb 28 in non-leap years.
func (tp TimePoint) AddYears(n int) TimePoint { return tp.AddMonths(12 * n) }

// Properties
func (tp TimePoint) Year() int         { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month { return tp.Time.Month() }
func (tp TimePoint) Day() int          { return tp.Time.Day() }
func (tp TimePoint) IsZero() bool      { return tp.Time.IsZero() }

func (tp TimePoint) String() string { return tp.Time.Format(DateLayout) }

func (tp TimePoint) MarshalText() ([]byte, error) {
	return []byte(tp.String()), nil
}

func (tp *TimePoint) UnmarshalText(b []byte) error {
	p, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*tp = p
	return nil
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

// DaysBetween returns the number of whole days from 'from' to 'to'.
func DaysBetween(from, to TimePoint) int { return int(to.Time.Sub(from.Time).Hours() / 24) }

// DaysInclusive counts the days in [from, to]; zero when to is before from.
func DaysInclusive(from, to TimePoint) int {
	if to.Before(from) {
		return 0
	}
	return DaysBetween(from, to) + 1
}

// CompletedYears returns how many full anniversaries of 'anchor' have passed
// on or before 'at'.
func CompletedYears(anchor, at TimePoint) int {
	if at.Before(anchor) {
		return 0
	}
	years := at.Year() - anchor.Year()
	if anchor.AddYears(years).After(at) {
		years--
	}
	return years
}

func StartOfYear(year int) TimePoint { return NewTimePoint(year, time.January, 1) }
func EndOfYear(year int) TimePoint   { return NewTimePoint(year, time.December, 31) }
func EndOfMonth(year int, month time.Month) TimePoint {
	return DateOf(time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1))
}

func MaxTimePoint(a, b TimePoint) TimePoint {
	if a.After(b) {
		return a
	}
	return b
}

func MinTimePoint(a, b TimePoint) TimePoint {
	if a.Before(b) {
		return a
	}
	return b
}
