/*
handlers.go - HTTP API handlers for the annual leave ledger

PURPOSE:
  Exposes employee ledgers, usage and settlement recording, the
  tenant-wide summary and tenant settings over REST. Handlers parse and
  validate requests, delegate to annualleave.Service or the store, and
  serialize the result.

ENDPOINTS:
  Employees:
    GET    /api/employees                       List tenant's employees
    POST   /api/employees                       Create or update employee
    GET    /api/employees/{id}                  Get employee
    GET    /api/employees/{id}/ledger           All cycles (?as_of=, ?active=true)
    GET    /api/employees/{id}/settleable       Active cycles with balance left
    POST   /api/employees/{id}/usage            Record approved leave (hours)
    POST   /api/employees/{id}/settlements      Record a settlement (days)

  Summary:
    GET    /api/summary                         Tenant table for ?year=
    GET    /api/summary/export                  Same table as XLSX

  Settings:
    GET    /api/settings                        Tenant calculation mode
    PUT    /api/settings                        Change calculation mode

  Audit:
    GET    /api/audit/runs                      Recent audit runs
    POST   /api/audit/run                       Run the audit now

TENANCY:
  List, summary and settings endpoints act on the tenant named by the
  X-Tenant-ID header, falling back to the configured default. Employee
  endpoints use the tenant stored on the employee.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed body, failed validation, bad query parameter
  - 404: Employee not found
  - 422: Employee's hire date is unusable (data-quality problem)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - export.go: XLSX rendering of the summary
  - scenarios.go: Demo data loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/warp/leave-ledger/annualleave"
	"github.com/warp/leave-ledger/generic"
	"github.com/warp/leave-ledger/store/sqlite"
)

// TenantHeader selects the tenant for tenant-scoped endpoints.
const TenantHeader = "X-Tenant-ID"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store         *sqlite.Store
	Service       *annualleave.Service
	Audit         *AuditScheduler
	DefaultTenant generic.TenantID

	// Now is the clock used when a request has no as_of.
	Now func() time.Time

	logger   *zap.Logger
	validate *validator.Validate

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler backed by the given store.
func NewHandler(store *sqlite.Store, logger *zap.Logger, defaultTenant generic.TenantID) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultTenant == "" {
		defaultTenant = generic.DefaultTenant
	}
	return &Handler{
		Store:         store,
		Service:       annualleave.NewService(store, logger.Named("ledger")),
		DefaultTenant: defaultTenant,
		Now:           time.Now,
		logger:        logger,
		validate:      validator.New(),
	}
}

func (h *Handler) tenant(r *http.Request) generic.TenantID {
	if t := r.Header.Get(TenantHeader); t != "" {
		return generic.TenantID(t)
	}
	return h.DefaultTenant
}

// asOf reads ?as_of=YYYY-MM-DD, defaulting to the handler clock.
func (h *Handler) asOf(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return h.Now(), nil
	}
	tp, err := generic.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("as_of must be YYYY-MM-DD: %w", err)
	}
	return tp.Time, nil
}

// decode reads a JSON body and runs struct validation.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeValidationError(w, err)
		return false
	}
	return true
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns the tenant's employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context(), h.tenant(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Store.GetEmployee(r.Context(), generic.EmployeeID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// DeleteEmployee removes an employee with their usage and settlements.
func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id := generic.EmployeeID(chi.URLParam(r, "id"))
	if err := h.Store.DeleteEmployee(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to delete employee", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateEmployee creates or updates an employee in the request's tenant.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if !h.decode(w, r, &req) {
		return
	}

	emp := generic.Employee{
		ID:       generic.EmployeeID(req.ID),
		TenantID: h.tenant(r),
		Name:     req.Name,
		Email:    req.Email,
	}
	if req.HireDate != "" {
		hire, err := generic.ParseDate(req.HireDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid hire_date format (use YYYY-MM-DD)", err)
			return
		}
		emp.HireDate = &hire
	}

	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// =============================================================================
// LEDGER HANDLERS
// =============================================================================

// GetLedger returns every cycle of an employee, newest first. With
// ?active=true only cycles that have not ended are returned.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	ledger, ok := h.buildLedger(w, r)
	if !ok {
		return
	}

	cycles := ledger.Cycles
	if active, _ := strconv.ParseBool(r.URL.Query().Get("active")); active {
		cycles = ledger.Active()
	}
	writeJSON(w, http.StatusOK, toLedgerDTO(ledger, cycles))
}

// GetSettleable returns the cycles a settlement can still be made against.
func (h *Handler) GetSettleable(w http.ResponseWriter, r *http.Request) {
	ledger, ok := h.buildLedger(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toLedgerDTO(ledger, ledger.Settleable()))
}

func (h *Handler) buildLedger(w http.ResponseWriter, r *http.Request) (*annualleave.Ledger, bool) {
	now, err := h.asOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of", err)
		return nil, false
	}

	ledger, err := h.Service.BuildLedger(r.Context(), generic.EmployeeID(chi.URLParam(r, "id")), now)
	if err != nil {
		h.writeDomainError(w, "Failed to build ledger", err)
		return nil, false
	}
	return ledger, true
}

// =============================================================================
// USAGE AND SETTLEMENT HANDLERS
// =============================================================================

// RecordUsage stores approved annual leave taken by an employee.
func (h *Handler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.employee(w, r)
	if !ok {
		return
	}

	var req RecordUsageRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !req.Hours.IsPositive() {
		writeError(w, http.StatusBadRequest, "hours must be positive", generic.ErrInvalidAmount)
		return
	}
	occurredAt, err := parseTimestamp(req.OccurredAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid occurred_at", err)
		return
	}

	id, err := h.Store.RecordUsage(r.Context(), generic.UsageRecord{
		EmployeeID: emp.ID,
		Hours:      req.Hours,
		OccurredAt: occurredAt,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to record usage", err)
		return
	}
	writeJSON(w, http.StatusCreated, CreatedResponse{ID: id})
}

// RecordSettlement stores days paid out to an employee.
func (h *Handler) RecordSettlement(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.employee(w, r)
	if !ok {
		return
	}

	var req RecordSettlementRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !req.Days.IsPositive() {
		writeError(w, http.StatusBadRequest, "days must be positive", generic.ErrInvalidAmount)
		return
	}

	in := sqlite.SettlementInput{
		SettlementRecord: generic.SettlementRecord{
			EmployeeID:  emp.ID,
			Days:        req.Days,
			TargetCycle: req.TargetCycle,
			Notes:       req.Notes,
		},
		PayMonth: req.PayMonth,
	}
	if req.TransactedAt != "" {
		at, err := parseTimestamp(req.TransactedAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid transacted_at", err)
			return
		}
		in.TransactedAt = at
	}

	id, err := h.Store.RecordSettlement(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, "Failed to record settlement", err)
		return
	}
	writeJSON(w, http.StatusCreated, CreatedResponse{ID: id})
}

func (h *Handler) employee(w http.ResponseWriter, r *http.Request) (generic.Employee, bool) {
	emp, err := h.Store.GetEmployee(r.Context(), generic.EmployeeID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, "Failed to get employee", err)
		return generic.Employee{}, false
	}
	return emp, true
}

// parseTimestamp accepts RFC 3339 or a bare YYYY-MM-DD date.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	tp, err := generic.ParseDate(s)
	if err != nil {
		return time.Time{}, err
	}
	return tp.Time, nil
}

// =============================================================================
// SUMMARY HANDLERS
// =============================================================================

// GetSummary returns the tenant-wide table for ?year= (default: as_of year).
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	resp, ok := h.summary(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ExportSummary returns the summary as an XLSX workbook.
func (h *Handler) ExportSummary(w http.ResponseWriter, r *http.Request) {
	resp, ok := h.summary(w, r)
	if !ok {
		return
	}

	f, err := summaryWorkbook(resp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build workbook", err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="annual-leave-%s-%d.xlsx"`, resp.TenantID, resp.Year))
	w.WriteHeader(http.StatusOK)
	if err := f.Write(w); err != nil {
		h.logger.Error("write workbook", zap.Error(err))
	}
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) (SummaryResponse, bool) {
	now, err := h.asOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of", err)
		return SummaryResponse{}, false
	}

	year := now.Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		year, err = strconv.Atoi(raw)
		if err != nil || year < 1900 || year > 9999 {
			writeError(w, http.StatusBadRequest, "year must be a four-digit year", err)
			return SummaryResponse{}, false
		}
	}

	tenant := h.tenant(r)
	ctx := r.Context()
	mode, err := h.Service.Mode(ctx, tenant)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load settings", err)
		return SummaryResponse{}, false
	}
	rows, err := h.Service.Summary(ctx, tenant, year, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build summary", err)
		return SummaryResponse{}, false
	}
	return toSummaryResponse(tenant, year, mode, generic.DateOf(now), rows), true
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

// GetSettings returns the tenant's calculation mode.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	tenant := h.tenant(r)
	mode, err := h.Service.Mode(r.Context(), tenant)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load settings", err)
		return
	}
	writeJSON(w, http.StatusOK, SettingsDTO{TenantID: string(tenant), CalculationMode: string(mode)})
}

// UpdateSettings changes the tenant's calculation mode.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsDTO
	if !h.decode(w, r, &req) {
		return
	}

	tenant := h.tenant(r)
	mode := generic.CalculationMode(req.CalculationMode)
	if err := h.Store.SetCalculationMode(r.Context(), tenant, mode); err != nil {
		h.writeDomainError(w, "Failed to save settings", err)
		return
	}

	h.logger.Info("calculation mode changed",
		zap.String("tenant_id", string(tenant)),
		zap.String("mode", string(mode)),
	)
	writeJSON(w, http.StatusOK, SettingsDTO{TenantID: string(tenant), CalculationMode: string(mode)})
}

// =============================================================================
// AUDIT HANDLERS
// =============================================================================

// ListAuditRuns returns recent audit runs (?limit=, default 50).
func (h *Handler) ListAuditRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer", err)
			return
		}
		limit = n
	}

	runs, err := h.Store.ListAuditRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list audit runs", err)
		return
	}

	resp := AuditRunsResponse{Runs: make([]AuditRunDTO, len(runs))}
	for i, run := range runs {
		resp.Runs[i] = toAuditRunDTO(run)
	}
	if h.Audit != nil {
		if next := h.Audit.NextRun(); !next.IsZero() {
			resp.NextRun = next.Format(time.RFC3339)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// TriggerAudit runs the audit over every tenant immediately.
func (h *Handler) TriggerAudit(w http.ResponseWriter, r *http.Request) {
	if h.Audit == nil {
		writeError(w, http.StatusServiceUnavailable, "Audit is not configured", nil)
		return
	}

	runs, err := h.Audit.RunNow(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Audit failed", err)
		return
	}

	dtos := make([]AuditRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toAuditRunDTO(run)
	}
	writeJSON(w, http.StatusOK, AuditRunsResponse{Runs: dtos})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeValidationError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	fields := make(map[string]string, len(verrs))
	for _, ve := range verrs {
		fields[ve.Field()] = ve.Tag()
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Fields: fields})
}

// writeDomainError maps ledger errors to HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Employee not found", err)
	case generic.IsDataQuality(err):
		writeError(w, http.StatusUnprocessableEntity, message, err)
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.logger.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
