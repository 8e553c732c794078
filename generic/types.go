/*
Package generic provides the primitives shared by the leave ledger.

PURPOSE:
  Domain-agnostic value types for reasoning about leave quantities over
  calendar windows. The annualleave package builds entitlement cycles on
  top of these; the stores and the API layer exchange them.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A decimal quantity with a unit (8 hours, 2.5 days)
  - Identifiers: Type-safe employee and tenant IDs

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. One rounding rule: every reported figure is rounded to 2 places
  3. Type Safety: Strong typing for IDs prevents mixing employee/tenant IDs

USAGE:
  used := generic.NewAmountFromInt(16, generic.UnitHours).ToDays()
  // used.Value == 2

SEE ALSO:
  - period.go: Inclusive windows and calculation modes
  - time.go: Day-granular dates and month-end clamped arithmetic
  - errors.go: Sentinel and structured errors
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitDays  Unit = "days"
	UnitHours Unit = "hours"
)

// HoursPerDay is the fixed conversion between usage hours and leave days.
const HoursPerDay = 8

// Places is the number of decimal places every reported figure is rounded to.
const Places = 2

var hoursPerDay = decimal.NewFromInt(HoursPerDay)

func NewAmountFromInt(value int, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value)), Unit: unit}
}

// ToDays converts an hour amount to days at HoursPerDay. Day amounts pass through.
func (a Amount) ToDays() Amount {
	if a.Unit == UnitHours {
		return Amount{Value: a.Value.Div(hoursPerDay), Unit: UnitDays}
	}
	return a
}

// Round rounds half away from zero to Places.
func (a Amount) Round() Amount { return Amount{Value: Round(a.Value), Unit: a.Unit} }

// Round is the single rounding rule for reported figures.
func Round(d decimal.Decimal) decimal.Decimal { return d.Round(Places) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type TenantID string

// DefaultTenant is used when the caller does not resolve a tenant.
const DefaultTenant TenantID = "default"
