/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Populates the database with small, fixed data sets whose ledgers have
	known figures. Every scenario is dated so that its expected numbers
	hold at the scenario's as_of date; pass that date as ?as_of= when
	reading ledgers.

AVAILABLE SCENARIOS:

	first-year:        Hired 2023-01-15, nothing taken: half-year 3, year 1 is 7
	usage:             Same employee, 16 hours taken: year 1 has 5 left
	tagged-settlement: Same employee, 3 days settled against year 1
	calendar:          Calendar-year tenant, mid-year hire pro-rated to 1.51
	data-quality:      Missing, unparseable and future hire dates plus
	                   a settlement no cycle can claim

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Set the tenant calculation mode if the scenario needs it
 3. Create employees
 4. Record usage and settlements

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "usage"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Ledger and summary endpoints
*/
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/leave-ledger/generic"
	"github.com/warp/leave-ledger/store/sqlite"
)

// ScenarioAsOf is the reference date all scenarios are written for.
const ScenarioAsOf = "2024-08-01"

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "first-year",
		Name:        "First Year",
		Description: "Anniversary mode, hired 2023-01-15, no leave taken",
		AsOf:        ScenarioAsOf,
	},
	{
		ID:          "usage",
		Name:        "Leave Taken",
		Description: "16 hours taken on 2024-02-01 count against year 1",
		AsOf:        ScenarioAsOf,
	},
	{
		ID:          "tagged-settlement",
		Name:        "Tagged Settlement",
		Description: "3 days settled for cycle 1 regardless of payout date",
		AsOf:        ScenarioAsOf,
	},
	{
		ID:          "calendar",
		Name:        "Calendar Year",
		Description: "Calendar-year tenant; 2023 entitlement pro-rated for a July hire",
		AsOf:        ScenarioAsOf,
	},
	{
		ID:          "data-quality",
		Name:        "Data Quality",
		Description: "Missing, unparseable and future hire dates; unattributed settlement",
		AsOf:        ScenarioAsOf,
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decode(w, r, &req) {
		return
	}

	var load func(context.Context) error
	switch req.ScenarioID {
	case "first-year":
		load = h.loadFirstYearScenario
	case "usage":
		load = h.loadUsageScenario
	case "tagged-settlement":
		load = h.loadTaggedSettlementScenario
	case "calendar":
		load = h.loadCalendarScenario
	case "data-quality":
		load = h.loadDataQualityScenario
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	h.currentScenario = ""
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	if err := load(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}
	h.currentScenario = req.ScenarioID

	h.logger.Info("scenario loaded", zap.String("scenario", req.ScenarioID))
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID, "as_of": ScenarioAsOf})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadFirstYearScenario(ctx context.Context) error {
	return h.Store.SaveEmployee(ctx, generic.Employee{
		ID:       "emp-amy",
		TenantID: h.DefaultTenant,
		Name:     "Amy Chen",
		Email:    "amy@example.com",
		HireDate: datePtr(2023, time.January, 15),
	})
}

func (h *Handler) loadUsageScenario(ctx context.Context) error {
	if err := h.loadFirstYearScenario(ctx); err != nil {
		return err
	}
	_, err := h.Store.RecordUsage(ctx, generic.UsageRecord{
		EmployeeID: "emp-amy",
		Hours:      decimal.NewFromInt(16),
		OccurredAt: time.Date(2024, time.February, 1, 9, 0, 0, 0, time.UTC),
	})
	return err
}

func (h *Handler) loadTaggedSettlementScenario(ctx context.Context) error {
	if err := h.loadFirstYearScenario(ctx); err != nil {
		return err
	}
	target := decimal.NewFromInt(1)
	_, err := h.Store.RecordSettlement(ctx, sqlite.SettlementInput{SettlementRecord: generic.SettlementRecord{
		EmployeeID:   "emp-amy",
		Days:         decimal.NewFromInt(3),
		TargetCycle:  &target,
		TransactedAt: time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
	}})
	return err
}

func (h *Handler) loadCalendarScenario(ctx context.Context) error {
	if err := h.Store.SetCalculationMode(ctx, h.DefaultTenant, generic.ModeCalendar); err != nil {
		return err
	}

	employees := []generic.Employee{
		{ID: "emp-ben", Name: "Ben Lin", HireDate: datePtr(2023, time.July, 1)},
		{ID: "emp-cara", Name: "Cara Wu", HireDate: datePtr(2016, time.March, 14)},
		{ID: "emp-dan", Name: "Dan Ho", HireDate: datePtr(2023, time.November, 1)},
	}
	for _, emp := range employees {
		emp.TenantID = h.DefaultTenant
		if err := h.Store.SaveEmployee(ctx, emp); err != nil {
			return err
		}
	}

	if _, err := h.Store.RecordUsage(ctx, generic.UsageRecord{
		EmployeeID: "emp-ben",
		Hours:      decimal.NewFromInt(8),
		OccurredAt: time.Date(2023, time.December, 28, 9, 0, 0, 0, time.UTC),
	}); err != nil {
		return err
	}
	_, err := h.Store.RecordSettlement(ctx, sqlite.SettlementInput{
		SettlementRecord: generic.SettlementRecord{
			EmployeeID: "emp-ben",
			Days:       decimal.RequireFromString("0.51"),
			Notes:      "2023年度未休結算",
		},
		PayMonth: "2024-01",
	})
	return err
}

func (h *Handler) loadDataQualityScenario(ctx context.Context) error {
	employees := []generic.Employee{
		{ID: "emp-new", Name: "No Start Date"},
		{ID: "emp-typo", Name: "Bad Start Date", RawHireDate: "2023/13/40"},
		{ID: "emp-future", Name: "Future Start", HireDate: datePtr(2025, time.March, 1)},
		{ID: "emp-eve", Name: "Eve Kuo", HireDate: datePtr(2021, time.March, 1)},
	}
	for _, emp := range employees {
		emp.TenantID = h.DefaultTenant
		if err := h.Store.SaveEmployee(ctx, emp); err != nil {
			return err
		}
	}

	// Tagged for a cycle Eve hasn't reached, so no cycle claims it.
	ghost := decimal.NewFromInt(9)
	if _, err := h.Store.RecordSettlement(ctx, sqlite.SettlementInput{SettlementRecord: generic.SettlementRecord{
		EmployeeID:   "emp-eve",
		Days:         decimal.NewFromInt(2),
		TargetCycle:  &ghost,
		TransactedAt: time.Date(2024, time.May, 31, 0, 0, 0, 0, time.UTC),
	}}); err != nil {
		return err
	}
	_, err := h.Store.RecordSettlement(ctx, sqlite.SettlementInput{SettlementRecord: generic.SettlementRecord{
		EmployeeID:   "emp-eve",
		Days:         decimal.NewFromInt(4),
		Notes:        "滿2年特休結算",
		TransactedAt: time.Date(2024, time.April, 15, 0, 0, 0, 0, time.UTC),
	}})
	return err
}

func datePtr(year int, month time.Month, day int) *generic.TimePoint {
	tp := generic.NewTimePoint(year, month, day)
	return &tp
}
