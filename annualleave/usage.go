package annualleave

import (
	"github.com/shopspring/decimal"
	"github.com/warp/leave-ledger/generic"
)

// UsedDays sums the hours of every record whose date falls inside the window
// (both ends included) and converts to days, rounded to 2 places. A record
// belongs to exactly one window by its own date; it is never split.
func UsedDays(records []generic.UsageRecord, window generic.Period) decimal.Decimal {
	hours := decimal.Zero
	for _, r := range records {
		if window.Contains(generic.DateOf(r.OccurredAt)) {
			hours = hours.Add(r.Hours)
		}
	}
	return generic.Amount{Value: hours, Unit: generic.UnitHours}.ToDays().Round().Value
}
