package generic

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// UPSTREAM RECORDS - Read-only inputs owned by other subsystems
// =============================================================================

// Employee is the slice of the staff directory the ledger reads.
//
// The directory may hand over either a parsed HireDate or only the stored
// text in RawHireDate; ResolveHireDate reconciles the two.
type Employee struct {
	ID          EmployeeID
	TenantID    TenantID
	Name        string
	Email       string
	HireDate    *TimePoint
	RawHireDate string
	CreatedAt   time.Time
}

// ResolveHireDate returns the hire date, nil when none is on file, or an
// InvalidHireDateError when the stored text can't be parsed.
func (e Employee) ResolveHireDate() (*TimePoint, error) {
	if e.HireDate != nil {
		return e.HireDate, nil
	}
	raw := strings.TrimSpace(e.RawHireDate)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		d := DateOf(t)
		return &d, nil
	}
	d, err := ParseDate(raw)
	if err != nil {
		return nil, &InvalidHireDateError{EmployeeID: e.ID, Raw: e.RawHireDate, Reason: "unparseable"}
	}
	return &d, nil
}

// UsageRecord is one approved annual-leave usage, already filtered upstream
// to approved requests of the annual-leave type.
type UsageRecord struct {
	ID         string
	EmployeeID EmployeeID
	Hours      decimal.Decimal
	OccurredAt time.Time
}

// Days converts the record's hours at HoursPerDay.
func (u UsageRecord) Days() decimal.Decimal {
	return Amount{Value: u.Hours, Unit: UnitHours}.ToDays().Value
}

// SettlementRecord is one cash-out of unused leave days. It is created by the
// settlement workflow and never mutated by the ledger.
type SettlementRecord struct {
	ID           string
	EmployeeID   EmployeeID
	Days         decimal.Decimal
	TargetCycle  *decimal.Decimal // explicit cycle tag, nil for legacy rows
	Notes        string
	TransactedAt time.Time // pay month if known, else creation time
}

// HasTarget reports whether the settlement carries an explicit cycle tag.
func (s SettlementRecord) HasTarget() bool { return s.TargetCycle != nil }
