/*
entitlement.go - Statutory annual-leave tier table

TIERS (both calculation modes share this table):
  half-year flag set   3 days
  < 1 year             0
  [1, 2)               7
  [2, 3)              10
  [3, 5)              14
  [5, 10)             15
  >= 10               15 + floor(years - 10) + 1, capped at 30

Every caller goes through Entitlement; there is no second formula.
*/
package annualleave

import "github.com/shopspring/decimal"

// HalfYearDays is the fixed entitlement of the half-year cycle.
const HalfYearDays = 3

// MaxDays caps the long-service tier.
const MaxDays = 30

type tier struct {
	fromYears int64
	days      int64
}

// tiers is ordered by fromYears; the last matching tier wins.
var tiers = []tier{
	{fromYears: 1, days: 7},
	{fromYears: 2, days: 10},
	{fromYears: 3, days: 14},
	{fromYears: 5, days: 15},
}

var (
	ten     = decimal.NewFromInt(10)
	maxDays = decimal.NewFromInt(MaxDays)
)

// Entitlement returns the statutory days for the given years of service.
func Entitlement(years decimal.Decimal, halfYear bool) decimal.Decimal {
	if halfYear {
		return decimal.NewFromInt(HalfYearDays)
	}
	if years.GreaterThanOrEqual(ten) {
		extra := years.Sub(ten).Floor().Add(decimal.NewFromInt(1))
		return decimal.Min(decimal.NewFromInt(15).Add(extra), maxDays)
	}
	days := decimal.Zero
	for _, t := range tiers {
		if years.GreaterThanOrEqual(decimal.NewFromInt(t.fromYears)) {
			days = decimal.NewFromInt(t.days)
		}
	}
	return days
}
