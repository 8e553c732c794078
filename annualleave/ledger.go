/*
ledger.go - Per-employee leave ledger assembly

PURPOSE:
  Composes cycle generation, usage aggregation and settlement attribution
  into one balance row per accrual cycle:

    balance = entitlement - used - settled

  The result is a pure projection of its inputs. Nothing is cached or
  persisted, and identical inputs with the same "now" yield identical rows.

HIRE DATE HANDLING:
  missing          -> no cycles, no error ("no data yet")
  unparseable      -> InvalidHireDateError
  after "now"      -> InvalidHireDateError

CALLERS:
  The API layer decides whether to show every cycle or only Settleable()
  ones (active, positive balance) next to a "settle" action.

SEE ALSO:
  - cycle.go: Cycle windows and entitlement
  - settlement.go: Matching policy for settlements
  - service.go: Fetches inputs and logs unattributed settlements
*/
package annualleave

import (
	"time"

	"github.com/warp/leave-ledger/generic"
)

// Ledger is the full cycle list for one employee plus audit context.
type Ledger struct {
	EmployeeID      generic.EmployeeID
	TenantID        generic.TenantID
	Mode            generic.CalculationMode
	AsOf            generic.TimePoint
	HireDate        *generic.TimePoint
	HireDateMissing bool
	Cycles          []AccrualCycle // newest first

	// Unattributed holds settlements no cycle claimed. Their days appear in
	// no Settled total.
	Unattributed []generic.SettlementRecord
}

// Settleable returns active cycles that still have a positive balance.
func (l *Ledger) Settleable() []AccrualCycle {
	var out []AccrualCycle
	for _, c := range l.Cycles {
		if c.Status == StatusActive && c.Balance.IsPositive() {
			out = append(out, c)
		}
	}
	return out
}

// Active returns cycles that have not yet ended.
func (l *Ledger) Active() []AccrualCycle {
	var out []AccrualCycle
	for _, c := range l.Cycles {
		if c.Status == StatusActive {
			out = append(out, c)
		}
	}
	return out
}

// OverSettled returns cycles with a negative raw balance.
func (l *Ledger) OverSettled() []AccrualCycle {
	var out []AccrualCycle
	for _, c := range l.Cycles {
		if c.OverSettled() {
			out = append(out, c)
		}
	}
	return out
}

// =============================================================================
// ASSEMBLER
// =============================================================================

// Assembler builds ledgers with a configurable attribution chain.
type Assembler struct {
	Attributor *Attributor
}

// NewAssembler uses the standard attribution chain.
func NewAssembler() *Assembler {
	return &Assembler{Attributor: NewAttributor()}
}

// BuildLedger is Assembler.BuildLedger with the standard attribution chain.
func BuildLedger(
	emp generic.Employee,
	usage []generic.UsageRecord,
	settlements []generic.SettlementRecord,
	mode generic.CalculationMode,
	now time.Time,
) ([]AccrualCycle, error) {
	return (&Assembler{Attributor: DefaultAttributor}).BuildLedger(emp, usage, settlements, mode, now)
}

// BuildLedger returns one row per cycle, newest first. Missing hire date
// yields an empty list; a bad or future hire date yields an error.
func (a *Assembler) BuildLedger(
	emp generic.Employee,
	usage []generic.UsageRecord,
	settlements []generic.SettlementRecord,
	mode generic.CalculationMode,
	now time.Time,
) ([]AccrualCycle, error) {
	hire, err := checkHireDate(emp, now)
	if err != nil || hire == nil {
		return nil, err
	}

	today := asOf(now)
	cycles, err := GenerateCycles(mode, *hire, today)
	if err != nil {
		return nil, err
	}

	for i := range cycles {
		c := &cycles[i]
		c.Used = UsedDays(usage, c.Period)
		c.Settled = a.Attributor.SettledDays(settlements, c.Period, c.Index)
		c.Balance = c.Entitlement.Sub(c.Used).Sub(c.Settled)
		c.Status = StatusAt(c.Period, today)
	}
	return cycles, nil
}

// Unattributed returns the settlements that none of the cycles claimed.
func (a *Assembler) Unattributed(cycles []AccrualCycle, settlements []generic.SettlementRecord) []generic.SettlementRecord {
	var out []generic.SettlementRecord
	for _, rec := range settlements {
		claimed := false
		for _, c := range cycles {
			if ok, _ := a.Attributor.Attribute(rec, Target{Index: c.Index, Window: c.Period}); ok {
				claimed = true
				break
			}
		}
		if !claimed {
			out = append(out, rec)
		}
	}
	return out
}

func checkHireDate(emp generic.Employee, now time.Time) (*generic.TimePoint, error) {
	hire, err := emp.ResolveHireDate()
	if err != nil || hire == nil {
		return nil, err
	}
	if hire.After(asOf(now)) {
		return nil, &generic.InvalidHireDateError{
			EmployeeID: emp.ID,
			Raw:        hire.String(),
			Reason:     "after as-of date " + asOf(now).String(),
		}
	}
	return hire, nil
}
