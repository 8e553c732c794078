package annualleave_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/warp/leave-ledger/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(year int, month time.Month, day int) generic.TimePoint {
	return generic.NewTimePoint(year, month, day)
}

func at(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 9, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "expected %s, got %s %v", want, got, msgAndArgs)
}

func employee(id string, hire *generic.TimePoint) generic.Employee {
	return generic.Employee{ID: generic.EmployeeID(id), TenantID: generic.DefaultTenant, Name: id, HireDate: hire}
}

func hired(year int, month time.Month, day int) *generic.TimePoint {
	d := date(year, month, day)
	return &d
}

func usage(hours string, on time.Time) generic.UsageRecord {
	return generic.UsageRecord{Hours: dec(hours), OccurredAt: on}
}
