package annualleave_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-ledger/annualleave"
	"github.com/warp/leave-ledger/generic"
)

var scenarioNow = at(2024, time.August, 1)

func scenarioEmployee() generic.Employee {
	return employee("emp-1", hired(2023, time.January, 15))
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestBuildLedger_NoActivity(t *testing.T) {
	// GIVEN: Hired 2023-01-15, now 2024-08-01, no usage or settlements
	cycles, err := annualleave.BuildLedger(scenarioEmployee(), nil, nil, generic.ModeAnniversary, scenarioNow)
	require.NoError(t, err)
	require.Len(t, cycles, 2)

	// THEN: Balance equals entitlement on each cycle
	assertDec(t, "7", cycles[0].Balance)
	assertDec(t, "0", cycles[0].Used)
	assertDec(t, "0", cycles[0].Settled)
	assertDec(t, "3", cycles[1].Balance)
}

func TestBuildLedger_UsageReducesYearOne(t *testing.T) {
	// GIVEN: 16 hours used on 2024-02-01
	used := []generic.UsageRecord{usage("16", at(2024, time.February, 1))}

	cycles, err := annualleave.BuildLedger(scenarioEmployee(), used, nil, generic.ModeAnniversary, scenarioNow)
	require.NoError(t, err)

	// THEN: Year 1 shows 2 days used, 5 left; half-year untouched
	assertDec(t, "2", cycles[0].Used)
	assertDec(t, "5", cycles[0].Balance)
	assertDec(t, "0", cycles[1].Used)
}

func TestBuildLedger_UsageWindowEdges(t *testing.T) {
	used := []generic.UsageRecord{
		usage("8", time.Date(2024, time.January, 14, 23, 59, 0, 0, time.UTC)), // half-year last day
		usage("4", time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)),   // year 1 first day
		usage("3", at(2023, time.July, 14)),                                    // before any cycle
	}

	cycles, err := annualleave.BuildLedger(scenarioEmployee(), used, nil, generic.ModeAnniversary, scenarioNow)
	require.NoError(t, err)

	assertDec(t, "0.5", cycles[0].Used)
	assertDec(t, "1", cycles[1].Used)
}

func TestBuildLedger_UsageRoundsToTwoPlaces(t *testing.T) {
	used := []generic.UsageRecord{usage("1", at(2024, time.March, 1))}
	cycles, err := annualleave.BuildLedger(scenarioEmployee(), used, nil, generic.ModeAnniversary, scenarioNow)
	require.NoError(t, err)

	// 1/8 = 0.125 -> 0.13
	assertDec(t, "0.13", cycles[0].Used)
	assertDec(t, "6.87", cycles[0].Balance)
}

func TestBuildLedger_TaggedSettlementIgnoresDate(t *testing.T) {
	// GIVEN: 3 days settled for cycle 1, paid while the half-year window was open
	settled := []generic.SettlementRecord{{Days: dec("3"), TargetCycle: decPtr("1"), TransactedAt: at(2023, time.September, 1)}}

	cycles, err := annualleave.BuildLedger(scenarioEmployee(), nil, settled, generic.ModeAnniversary, scenarioNow)
	require.NoError(t, err)

	// THEN: Year 1 carries it, the half-year does not
	assertDec(t, "3", cycles[0].Settled)
	assertDec(t, "4", cycles[0].Balance)
	assertDec(t, "0", cycles[1].Settled)
}

func TestBuildLedger_TaggedSettlementInWindow(t *testing.T) {
	settled := []generic.SettlementRecord{{Days: dec("3"), TargetCycle: decPtr("1"), TransactedAt: at(2024, time.June, 1)}}

	cycles, err := annualleave.BuildLedger(scenarioEmployee(), nil, settled, generic.ModeAnniversary, scenarioNow)
	require.NoError(t, err)
	assertDec(t, "3", cycles[0].Settled)
	assertDec(t, "4", cycles[0].Balance)
}

// =============================================================================
// INVARIANTS
// =============================================================================

func TestBuildLedger_Conservation_AllowsNegativeRaw(t *testing.T) {
	// GIVEN: Year 1 used 5 days and 4 more were settled against it
	used := []generic.UsageRecord{usage("40", at(2024, time.March, 4))}
	settled := []generic.SettlementRecord{{Days: dec("4"), TargetCycle: decPtr("1"), TransactedAt: at(2024, time.July, 1)}}

	cycles, err := annualleave.BuildLedger(scenarioEmployee(), used, settled, generic.ModeAnniversary, scenarioNow)
	require.NoError(t, err)

	for _, c := range cycles {
		assert.True(t, c.Entitlement.Sub(c.Used).Sub(c.Settled).Equal(c.Balance), "conservation for %s", c.Label)
	}
	// THEN: Raw balance is -2, display clamps to 0
	assertDec(t, "-2", cycles[0].Balance)
	assertDec(t, "0", cycles[0].DisplayBalance())
	assert.True(t, cycles[0].OverSettled())
}

func TestBuildLedger_Idempotent(t *testing.T) {
	used := []generic.UsageRecord{usage("12", at(2024, time.February, 1)), usage("8", at(2023, time.October, 2))}
	settled := []generic.SettlementRecord{{Days: dec("1"), Notes: "滿半年", TransactedAt: at(2024, time.February, 1)}}

	first, err := annualleave.BuildLedger(scenarioEmployee(), used, settled, generic.ModeAnniversary, scenarioNow)
	require.NoError(t, err)
	second, err := annualleave.BuildLedger(scenarioEmployee(), used, settled, generic.ModeAnniversary, scenarioNow)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuildLedger_NeverReturnsFutureCycles(t *testing.T) {
	for _, mode := range []generic.CalculationMode{generic.ModeAnniversary, generic.ModeCalendar} {
		cycles, err := annualleave.BuildLedger(employee("e", hired(2001, time.November, 30)), nil, nil, mode, scenarioNow)
		require.NoError(t, err)
		for _, c := range cycles {
			assert.False(t, c.Period.Start.After(generic.DateOf(scenarioNow)), "%s %s", mode, c.Label)
		}
	}
}

// =============================================================================
// HIRE DATE HANDLING
// =============================================================================

func TestBuildLedger_MissingHireDate_Empty(t *testing.T) {
	cycles, err := annualleave.BuildLedger(employee("e", nil), nil, nil, generic.ModeAnniversary, scenarioNow)
	assert.NoError(t, err)
	assert.Empty(t, cycles)
}

func TestBuildLedger_FutureHireDate_Error(t *testing.T) {
	_, err := annualleave.BuildLedger(employee("e", hired(2024, time.August, 2)), nil, nil, generic.ModeAnniversary, scenarioNow)

	assert.ErrorIs(t, err, generic.ErrInvalidHireDate)
	var hdErr *generic.InvalidHireDateError
	require.ErrorAs(t, err, &hdErr)
	assert.Equal(t, generic.EmployeeID("e"), hdErr.EmployeeID)
}

func TestBuildLedger_UnparseableHireDate_Error(t *testing.T) {
	emp := generic.Employee{ID: "e", RawHireDate: "15/01/2023"}
	_, err := annualleave.BuildLedger(emp, nil, nil, generic.ModeAnniversary, scenarioNow)
	assert.ErrorIs(t, err, generic.ErrInvalidHireDate)
}

func TestBuildLedger_RawHireDateParsed(t *testing.T) {
	emp := generic.Employee{ID: "e", RawHireDate: "2023-01-15"}
	cycles, err := annualleave.BuildLedger(emp, nil, nil, generic.ModeAnniversary, scenarioNow)
	require.NoError(t, err)
	assert.Len(t, cycles, 2)
}

// =============================================================================
// CALENDAR MODE
// =============================================================================

func TestBuildLedger_CalendarMode(t *testing.T) {
	// GIVEN: Hired 2023-07-01, calendar system, now 2024-08-01
	emp := employee("e", hired(2023, time.July, 1))
	used := []generic.UsageRecord{usage("8", at(2023, time.December, 28)), usage("24", at(2024, time.May, 2))}
	settled := []generic.SettlementRecord{{Days: dec("0.51"), Notes: "2023年度結算", TransactedAt: at(2024, time.January, 31)}}

	cycles, err := annualleave.BuildLedger(emp, used, settled, generic.ModeCalendar, scenarioNow)
	require.NoError(t, err)
	require.Len(t, cycles, 2)

	y2024, y2023 := cycles[0], cycles[1]
	assertDec(t, "7", y2024.Entitlement)
	assertDec(t, "3", y2024.Used)
	assertDec(t, "0", y2024.Settled)
	assertDec(t, "4", y2024.Balance)

	assertDec(t, "1.51", y2023.Entitlement)
	assertDec(t, "1", y2023.Used)
	assertDec(t, "0.51", y2023.Settled)
	assertDec(t, "0", y2023.Balance)
	assert.Equal(t, annualleave.StatusExpired, y2023.Status)
}

// =============================================================================
// LEDGER VIEWS
// =============================================================================

func TestAssembler_Unattributed(t *testing.T) {
	settled := []generic.SettlementRecord{
		{ID: "s-tagged", Days: dec("1"), TargetCycle: decPtr("1")},
		{ID: "s-ghost-cycle", Days: dec("2"), TargetCycle: decPtr("5")},
		{ID: "s-old-date", Days: dec("1"), TransactedAt: at(2022, time.December, 1)},
		{ID: "s-no-signal", Days: dec("1")},
	}
	a := annualleave.NewAssembler()
	cycles, err := a.BuildLedger(scenarioEmployee(), nil, settled, generic.ModeAnniversary, scenarioNow)
	require.NoError(t, err)

	var ids []string
	for _, rec := range a.Unattributed(cycles, settled) {
		ids = append(ids, rec.ID)
	}
	assert.Equal(t, []string{"s-ghost-cycle", "s-old-date", "s-no-signal"}, ids)
}

func TestLedger_Settleable(t *testing.T) {
	l := &annualleave.Ledger{Cycles: []annualleave.AccrualCycle{
		{Label: "active-positive", Status: annualleave.StatusActive, Balance: dec("2")},
		{Label: "active-zero", Status: annualleave.StatusActive, Balance: dec("0")},
		{Label: "expired-positive", Status: annualleave.StatusExpired, Balance: dec("3")},
	}}

	settleable := l.Settleable()
	require.Len(t, settleable, 1)
	assert.Equal(t, "active-positive", settleable[0].Label)
	assert.Len(t, l.Active(), 2)
}
