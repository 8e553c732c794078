package annualleave

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-ledger/generic"
)

// SummaryRow is one employee's line in the tenant-wide table for a year.
type SummaryRow struct {
	EmployeeID generic.EmployeeID
	Name       string
	HireDate   *generic.TimePoint
	Mode       generic.CalculationMode
	Years      int           // completed years of service at the reference date
	Cycle      *AccrualCycle // nil when no cycle applies
	Note       string
}

// Summary notes
const (
	NoteNoHireDate = "no hire date on file"
	NoteNoCycle    = "no cycle started by reference date"
)

// Summary lists every employee of a tenant for a calendar year.
//
// Calendar mode shows the year's own cycle. Anniversary mode shows the latest
// cycle that started on or before min(now, Dec 31 of year). Used and settled
// figures are always as of now.
func (s *Service) Summary(ctx context.Context, tenantID generic.TenantID, year int, now time.Time) ([]SummaryRow, error) {
	mode, err := s.source.GetCalculationMode(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	employees, err := s.source.ListEmployees(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	ref := generic.MinTimePoint(asOf(now), generic.EndOfYear(year))
	rows := make([]SummaryRow, 0, len(employees))
	for _, emp := range employees {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := SummaryRow{EmployeeID: emp.ID, Name: emp.Name, Mode: mode}

		l, err := s.buildFor(ctx, emp, mode, now)
		switch {
		case err != nil && generic.IsDataQuality(err):
			row.Note = err.Error()
		case err != nil:
			return nil, err
		case l.HireDateMissing:
			row.Note = NoteNoHireDate
		default:
			row.HireDate = l.HireDate
			row.Years = generic.CompletedYears(*l.HireDate, ref)
			row.Cycle = pickCycle(l.Cycles, mode, year, ref)
			if row.Cycle == nil {
				row.Note = NoteNoCycle
			}
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows, nil
}

func pickCycle(cycles []AccrualCycle, mode generic.CalculationMode, year int, ref generic.TimePoint) *AccrualCycle {
	if mode == generic.ModeCalendar {
		want := decimal.NewFromInt(int64(year))
		for i := range cycles {
			if cycles[i].Index.Equal(want) {
				return &cycles[i]
			}
		}
		return nil
	}
	// cycles are newest first
	for i := range cycles {
		if cycles[i].Period.Start.BeforeOrEqual(ref) {
			return &cycles[i]
		}
	}
	return nil
}

// Totals sums the rows that have a cycle.
func Totals(rows []SummaryRow) (entitlement, used, settled, balance decimal.Decimal) {
	for _, r := range rows {
		if r.Cycle == nil {
			continue
		}
		entitlement = entitlement.Add(r.Cycle.Entitlement)
		used = used.Add(r.Cycle.Used)
		settled = settled.Add(r.Cycle.Settled)
		balance = balance.Add(r.Cycle.Balance)
	}
	return
}
