/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the ledger model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Wrappers around lists with totals or metadata

NUMBERS:
  Day amounts go out as JSON numbers rounded to 2 places. Requests accept
  either numbers or numeric strings for decimal fields.

VALIDATION:
  Request types carry go-playground/validator tags for shape checks
  (required fields, date layouts, enums). Amount checks that depend on
  sign are done in handlers.

SEE ALSO:
  - handlers.go: Uses these types
  - annualleave/ledger.go: Ledger and AccrualCycle
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-ledger/annualleave"
	"github.com/warp/leave-ledger/generic"
	"github.com/warp/leave-ledger/store/sqlite"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	HireDate  string `json:"hire_date,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateEmployeeRequest is the request to create or update an employee.
// hire_date may be omitted for employees whose start date is not known yet.
type CreateEmployeeRequest struct {
	ID       string `json:"id" validate:"required,max=64"`
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"omitempty,email"`
	HireDate string `json:"hire_date" validate:"omitempty,datetime=2006-01-02"`
}

func toEmployeeDTO(e generic.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:       string(e.ID),
		TenantID: string(e.TenantID),
		Name:     e.Name,
		Email:    e.Email,
		HireDate: e.RawHireDate,
	}
	if e.HireDate != nil {
		dto.HireDate = e.HireDate.String()
	}
	if !e.CreatedAt.IsZero() {
		dto.CreatedAt = e.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// LEDGER
// =============================================================================

// CycleDTO is one accrual cycle row.
type CycleDTO struct {
	CycleIndex  float64 `json:"cycle_index"`
	Label       string  `json:"label"`
	CycleStart  string  `json:"cycle_start"`
	CycleEnd    string  `json:"cycle_end"`
	Entitlement float64 `json:"entitlement"`
	Used        float64 `json:"used"`
	Settled     float64 `json:"settled"`
	Balance     float64 `json:"balance"`     // clamped at 0
	RawBalance  float64 `json:"raw_balance"` // may be negative
	Status      string  `json:"status"`
}

// SettlementDTO is a settlement record as stored.
type SettlementDTO struct {
	ID           string   `json:"id"`
	Days         float64  `json:"days"`
	TargetCycle  *float64 `json:"target_cycle,omitempty"`
	Notes        string   `json:"notes,omitempty"`
	TransactedAt string   `json:"transacted_at,omitempty"`
}

// LedgerDTO is an employee's ledger.
type LedgerDTO struct {
	EmployeeID      string          `json:"employee_id"`
	TenantID        string          `json:"tenant_id"`
	CalculationMode string          `json:"calculation_mode"`
	AsOf            string          `json:"as_of"`
	HireDate        string          `json:"hire_date,omitempty"`
	HireDateMissing bool            `json:"hire_date_missing"`
	Cycles          []CycleDTO      `json:"cycles"`
	Unattributed    []SettlementDTO `json:"unattributed_settlements"`
}

func num(d decimal.Decimal) float64 {
	return generic.Round(d).InexactFloat64()
}

func toCycleDTO(c annualleave.AccrualCycle) CycleDTO {
	return CycleDTO{
		CycleIndex:  c.Index.InexactFloat64(),
		Label:       c.Label,
		CycleStart:  c.Period.Start.String(),
		CycleEnd:    c.Period.End.String(),
		Entitlement: num(c.Entitlement),
		Used:        num(c.Used),
		Settled:     num(c.Settled),
		Balance:     num(c.DisplayBalance()),
		RawBalance:  num(c.Balance),
		Status:      string(c.Status),
	}
}

func toCycleDTOs(cycles []annualleave.AccrualCycle) []CycleDTO {
	out := make([]CycleDTO, len(cycles))
	for i, c := range cycles {
		out[i] = toCycleDTO(c)
	}
	return out
}

func toSettlementDTO(s generic.SettlementRecord) SettlementDTO {
	dto := SettlementDTO{ID: s.ID, Days: num(s.Days), Notes: s.Notes}
	if s.TargetCycle != nil {
		t := s.TargetCycle.InexactFloat64()
		dto.TargetCycle = &t
	}
	if !s.TransactedAt.IsZero() {
		dto.TransactedAt = s.TransactedAt.Format(time.RFC3339)
	}
	return dto
}

func toLedgerDTO(l *annualleave.Ledger, cycles []annualleave.AccrualCycle) LedgerDTO {
	dto := LedgerDTO{
		EmployeeID:      string(l.EmployeeID),
		TenantID:        string(l.TenantID),
		CalculationMode: string(l.Mode),
		AsOf:            l.AsOf.String(),
		HireDateMissing: l.HireDateMissing,
		Cycles:          toCycleDTOs(cycles),
		Unattributed:    make([]SettlementDTO, len(l.Unattributed)),
	}
	if l.HireDate != nil {
		dto.HireDate = l.HireDate.String()
	}
	for i, s := range l.Unattributed {
		dto.Unattributed[i] = toSettlementDTO(s)
	}
	return dto
}

// =============================================================================
// USAGE AND SETTLEMENTS
// =============================================================================

// RecordUsageRequest records approved annual leave taken, in hours.
type RecordUsageRequest struct {
	Hours      decimal.Decimal `json:"hours"`
	OccurredAt string          `json:"occurred_at" validate:"required"`
}

// RecordSettlementRequest records days paid out instead of taken.
// transacted_at or pay_month (YYYY-MM) dates the payout.
type RecordSettlementRequest struct {
	Days         decimal.Decimal  `json:"days"`
	TargetCycle  *decimal.Decimal `json:"target_cycle"`
	Notes        string           `json:"notes" validate:"max=500"`
	TransactedAt string           `json:"transacted_at" validate:"required_without=PayMonth"`
	PayMonth     string           `json:"pay_month" validate:"omitempty,datetime=2006-01"`
}

// CreatedResponse returns the ID of a new record.
type CreatedResponse struct {
	ID string `json:"id"`
}

// =============================================================================
// SUMMARY
// =============================================================================

// SummaryRowDTO is one employee's line in the summary table.
type SummaryRowDTO struct {
	EmployeeID string    `json:"employee_id"`
	Name       string    `json:"name"`
	HireDate   string    `json:"hire_date,omitempty"`
	Years      int       `json:"years_of_service"`
	Cycle      *CycleDTO `json:"cycle,omitempty"`
	Note       string    `json:"note,omitempty"`
}

// SummaryResponse is the tenant-wide table for a year.
type SummaryResponse struct {
	TenantID         string          `json:"tenant_id"`
	Year             int             `json:"year"`
	CalculationMode  string          `json:"calculation_mode"`
	AsOf             string          `json:"as_of"`
	Rows             []SummaryRowDTO `json:"rows"`
	TotalEntitlement float64         `json:"total_entitlement"`
	TotalUsed        float64         `json:"total_used"`
	TotalSettled     float64         `json:"total_settled"`
	TotalBalance     float64         `json:"total_balance"`
}

func toSummaryResponse(tenant generic.TenantID, year int, mode generic.CalculationMode, asOf generic.TimePoint, rows []annualleave.SummaryRow) SummaryResponse {
	resp := SummaryResponse{
		TenantID:        string(tenant),
		Year:            year,
		CalculationMode: string(mode),
		AsOf:            asOf.String(),
		Rows:            make([]SummaryRowDTO, len(rows)),
	}
	for i, r := range rows {
		dto := SummaryRowDTO{EmployeeID: string(r.EmployeeID), Name: r.Name, Years: r.Years, Note: r.Note}
		if r.HireDate != nil {
			dto.HireDate = r.HireDate.String()
		}
		if r.Cycle != nil {
			c := toCycleDTO(*r.Cycle)
			dto.Cycle = &c
		}
		resp.Rows[i] = dto
	}
	ent, used, settled, bal := annualleave.Totals(rows)
	resp.TotalEntitlement = num(ent)
	resp.TotalUsed = num(used)
	resp.TotalSettled = num(settled)
	resp.TotalBalance = num(bal)
	return resp
}

// =============================================================================
// SETTINGS
// =============================================================================

// SettingsDTO is a tenant's ledger settings.
type SettingsDTO struct {
	TenantID        string `json:"tenant_id,omitempty"`
	CalculationMode string `json:"calculation_mode" validate:"required,oneof=anniversary calendar"`
}

// =============================================================================
// AUDIT
// =============================================================================

// AuditRunDTO is one audit pass over a tenant.
type AuditRunDTO struct {
	ID           string `json:"id"`
	TenantID     string `json:"tenant_id"`
	Status       string `json:"status"`
	Employees    int    `json:"employees"`
	Unattributed int    `json:"unattributed"`
	OverSettled  int    `json:"over_settled"`
	Error        string `json:"error,omitempty"`
	StartedAt    string `json:"started_at"`
	CompletedAt  string `json:"completed_at,omitempty"`
}

func toAuditRunDTO(r sqlite.AuditRun) AuditRunDTO {
	dto := AuditRunDTO{
		ID:           r.ID,
		TenantID:     string(r.TenantID),
		Status:       r.Status,
		Employees:    r.Employees,
		Unattributed: r.Unattributed,
		OverSettled:  r.OverSettled,
		Error:        r.Error,
		StartedAt:    r.StartedAt.Format(time.RFC3339),
	}
	if r.CompletedAt != nil {
		dto.CompletedAt = r.CompletedAt.Format(time.RFC3339)
	}
	return dto
}

// AuditRunsResponse lists recent runs and the next scheduled one.
type AuditRunsResponse struct {
	Runs    []AuditRunDTO `json:"runs"`
	NextRun string        `json:"next_run,omitempty"`
}

// =============================================================================
// SCENARIOS AND ERRORS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	AsOf        string `json:"as_of"` // date the expected figures hold at
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}
