package generic

import (
	"fmt"
	"strings"
)

// =============================================================================
// PERIOD - Inclusive date window an accrual cycle covers
// =============================================================================

// Period is the inclusive window [Start, End] of one accrual cycle.
//
// Examples:
//   - Anniversary year 1 for a 2023-01-15 hire: 2024-01-15 - 2025-01-14
//   - Half-year cycle for the same hire:        2023-07-15 - 2024-01-14
//   - Calendar year 2024:                        2024-01-01 - 2024-12-31
type Period struct {
	Start TimePoint
	End   TimePoint
}

// NewPeriod builds a period, rejecting windows that end before they start.
func NewPeriod(start, end TimePoint) (Period, error) {
	if end.Before(start) {
		return Period{}, fmt.Errorf("%w: %s > %s", ErrInvalidPeriod, start, end)
	}
	return Period{Start: start, End: end}, nil
}

// Contains returns true if the date is within [Start, End].
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Days returns the number of calendar days covered, both ends included.
func (p Period) Days() int {
	return DaysInclusive(p.Start, p.End)
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// CALCULATION MODE - How a tenant slices service time into cycles
// =============================================================================

// CalculationMode is the per-tenant "calculation system" setting.
type CalculationMode string

const (
	ModeAnniversary CalculationMode = "anniversary" // cycles anchored to the hire date
	ModeCalendar    CalculationMode = "calendar"    // Jan 1 - Dec 31, pro-rated
)

// DefaultMode applies when a tenant never configured one.
const DefaultMode = ModeAnniversary

// ParseCalculationMode accepts the stored setting value. Empty means default.
func ParseCalculationMode(s string) (CalculationMode, error) {
	switch CalculationMode(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultMode, nil
	case ModeAnniversary:
		return ModeAnniversary, nil
	case ModeCalendar:
		return ModeCalendar, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCalculationMode, s)
	}
}

func (m CalculationMode) Valid() bool {
	return m == ModeAnniversary || m == ModeCalendar
}
