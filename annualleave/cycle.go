/*
cycle.go - Accrual cycle generation

PURPOSE:
  Turns a hire date into the ordered list of accrual cycles that exist as
  of "now". Two calculation systems exist, chosen per tenant.

ANNIVERSARY MODE:
  Half-year cycle (index 0.5): [hire + 6mo, hire + 1y - 1d], 3 days.
    Exists only once hire + 6mo <= now.
  Yearly cycle i (1, 2, ...):  [hire + i y, hire + (i+1) y - 1d],
    Entitlement(i). Generation stops at the first cycle starting after now.

  Example, hired 2023-01-15, now 2024-08-01:
    0.5  2023-07-15 .. 2024-01-14   3 days   expired
    1    2024-01-15 .. 2025-01-14   7 days   active
    (2 would start 2025-01-15, after now: not generated)

CALENDAR MODE:
  One cycle per calendar year from the hire year to now's year, indexed by
  the year itself. Window [max(hire, Jan 1), Dec 31]. Entitlement is the
  full-year tier for the anniversaries completed by the end of Dec 31
  (a Jan 1 hire completes one year on Dec 31 in leap and common years
  alike). With no anniversary yet, six completed months take the
  half-year tier. The result is pro-rated by presence:
    months  = days_in_period / 30.44
    granted = round(full * months / 12, 2)
  Under one year of tenure the whole amount is pro-rated; from one year on
  it is granted in full when the employee was present all year.

Month and year offsets clamp to month end (see generic.TimePoint.AddMonths).
*/
package annualleave

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-ledger/generic"
)

// MaxCycles bounds the anniversary walk.
const MaxCycles = 60

// DaysPerMonth is the average month length used for calendar pro-ration.
var DaysPerMonth = decimal.RequireFromString("30.44")

var (
	maxCycleIndex = decimal.NewFromInt(MaxCycles)
	halfYearIndex = decimal.RequireFromString("0.5")
	twelve        = decimal.NewFromInt(12)
	one           = decimal.NewFromInt(1)
)

// =============================================================================
// ACCRUAL CYCLE
// =============================================================================

type CycleStatus string

const (
	StatusActive  CycleStatus = "active"
	StatusExpired CycleStatus = "expired"
)

// AccrualCycle is one computed ledger row. It is never persisted.
//
// Invariant: Balance == Entitlement - Used - Settled. Balance is the raw
// value and may be negative when a cycle was over-settled; use
// DisplayBalance for user-facing figures.
type AccrualCycle struct {
	Index       decimal.Decimal
	Label       string
	Period      generic.Period
	Entitlement decimal.Decimal
	Used        decimal.Decimal
	Settled     decimal.Decimal
	Balance     decimal.Decimal
	Status      CycleStatus
}

// IsHalfYear reports whether this is the 0.5 cycle.
func (c AccrualCycle) IsHalfYear() bool { return c.Index.Equal(halfYearIndex) }

// DisplayBalance clamps the raw balance at zero.
func (c AccrualCycle) DisplayBalance() decimal.Decimal {
	if c.Balance.IsNegative() {
		return decimal.Zero
	}
	return c.Balance
}

// OverSettled reports a negative raw balance.
func (c AccrualCycle) OverSettled() bool { return c.Balance.IsNegative() }

// StatusAt is Expired iff the cycle ended before now.
func StatusAt(p generic.Period, now generic.TimePoint) CycleStatus {
	if p.End.Before(now) {
		return StatusExpired
	}
	return StatusActive
}

// =============================================================================
// GENERATION
// =============================================================================

// GenerateCycles dispatches on mode. Entitlement is filled in; usage,
// settlement and balance are left for the assembler.
func GenerateCycles(mode generic.CalculationMode, hire, now generic.TimePoint) ([]AccrualCycle, error) {
	switch mode {
	case generic.ModeAnniversary, "":
		return AnniversaryCycles(hire, now), nil
	case generic.ModeCalendar:
		return CalendarCycles(hire, now), nil
	default:
		return nil, fmt.Errorf("%w: %q", generic.ErrInvalidCalculationMode, mode)
	}
}

// AnniversaryCycles walks the hire-date anniversaries up to now, newest first.
func AnniversaryCycles(hire, now generic.TimePoint) []AccrualCycle {
	var cycles []AccrualCycle

	halfStart := hire.AddMonths(6)
	if halfStart.BeforeOrEqual(now) {
		p := generic.Period{Start: halfStart, End: hire.AddYears(1).AddDays(-1)}
		cycles = append(cycles, AccrualCycle{
			Index:       halfYearIndex,
			Label:       CycleLabel(halfYearIndex),
			Period:      p,
			Entitlement: Entitlement(halfYearIndex, true),
			Status:      StatusAt(p, now),
		})
	}

	for i := 1; i <= MaxCycles; i++ {
		start := hire.AddYears(i)
		if start.After(now) {
			break
		}
		idx := decimal.NewFromInt(int64(i))
		p := generic.Period{Start: start, End: hire.AddYears(i + 1).AddDays(-1)}
		cycles = append(cycles, AccrualCycle{
			Index:       idx,
			Label:       CycleLabel(idx),
			Period:      p,
			Entitlement: Entitlement(idx, false),
			Status:      StatusAt(p, now),
		})
	}

	SortNewestFirst(cycles)
	return cycles
}

// CalendarCycles produces one cycle per calendar year, newest first.
func CalendarCycles(hire, now generic.TimePoint) []AccrualCycle {
	var cycles []AccrualCycle
	for year := hire.Year(); year <= now.Year(); year++ {
		c, ok := CalendarCycle(hire, year)
		if !ok || c.Period.Start.After(now) {
			continue
		}
		c.Status = StatusAt(c.Period, now)
		cycles = append(cycles, c)
	}
	SortNewestFirst(cycles)
	return cycles
}

// CalendarCycle computes the pro-rated cycle for one calendar year. It
// returns false when the employee was hired after that year ended.
func CalendarCycle(hire generic.TimePoint, year int) (AccrualCycle, bool) {
	yearStart, yearEnd := generic.StartOfYear(year), generic.EndOfYear(year)
	if hire.After(yearEnd) {
		return AccrualCycle{}, false
	}

	p := generic.Period{Start: generic.MaxTimePoint(hire, yearStart), End: yearEnd}
	years, halfYear := ServiceAt(hire, yearEnd)
	underOne := years < 1
	full := Entitlement(decimal.NewFromInt(int64(years)), halfYear)

	granted := full
	presentAllYear := !hire.After(yearStart)
	if underOne || !presentAllYear {
		granted = generic.Round(full.Mul(PresenceRatio(p)))
	}

	idx := decimal.NewFromInt(int64(year))
	return AccrualCycle{
		Index:       idx,
		Label:       fmt.Sprintf("%d年度", year),
		Period:      p,
		Entitlement: granted,
	}, true
}

// ServiceAt counts the anniversaries completed by the end of day 'at'. When
// none is complete, halfYear reports whether six months are.
func ServiceAt(hire, at generic.TimePoint) (years int, halfYear bool) {
	next := at.AddDays(1)
	years = generic.CompletedYears(hire, next)
	if years == 0 {
		halfYear = hire.AddMonths(6).BeforeOrEqual(next)
	}
	return years, halfYear
}

// PresenceRatio is (days / 30.44) / 12, capped at 1.
func PresenceRatio(p generic.Period) decimal.Decimal {
	months := decimal.NewFromInt(int64(p.Days())).Div(DaysPerMonth)
	return decimal.Min(months.Div(twelve), one)
}

// CycleLabel names an anniversary cycle: 滿半年, 滿1年, 滿2年, ...
func CycleLabel(index decimal.Decimal) string {
	if index.Equal(halfYearIndex) {
		return "滿半年"
	}
	return "滿" + index.String() + "年"
}

// SortNewestFirst orders cycles by descending start date.
func SortNewestFirst(cycles []AccrualCycle) {
	sort.SliceStable(cycles, func(i, j int) bool {
		return cycles[i].Period.Start.After(cycles[j].Period.Start)
	})
}

// asOf normalizes the caller's "now" to a date.
func asOf(now time.Time) generic.TimePoint { return generic.DateOf(now) }
