/*
handlers_test.go - HTTP tests for the ledger API

Tests for:
- Employee create/get/list/delete and tenant scoping
- Ledger and settleable views, as_of handling, error statuses
- Usage and settlement intake validation
- Settings and summary, including XLSX export
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/leave-ledger/store/sqlite"
)

var testNow = time.Date(2024, time.August, 1, 12, 0, 0, 0, time.UTC)

type testServer struct {
	handler *Handler
	router  http.Handler
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store, nil, "default")
	h.Now = func() time.Time { return testNow }
	h.Audit = NewAuditScheduler(store, h.Service, "0 3 * * *", nil)
	h.Audit.Now = h.Now
	return &testServer{handler: h, router: NewRouter(h, nil)}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) createEmployee(t *testing.T, id, hireDate string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/employees", map[string]string{"id": id, "name": "Name " + id, "hire_date": hireDate})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestEmployees_CreateGetList(t *testing.T) {
	srv := setupTestServer(t)
	srv.createEmployee(t, "emp-1", "2023-01-15")
	srv.createEmployee(t, "emp-2", "")

	rec := srv.do(t, http.MethodGet, "/api/employees/emp-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	emp := decodeBody[EmployeeDTO](t, rec)
	assert.Equal(t, "2023-01-15", emp.HireDate)
	assert.Equal(t, "default", emp.TenantID)

	rec = srv.do(t, http.MethodGet, "/api/employees", nil)
	list := decodeBody[[]EmployeeDTO](t, rec)
	assert.Len(t, list, 2)

	// Another tenant sees nobody
	rec = srv.do(t, http.MethodGet, "/api/employees", nil, TenantHeader, "acme")
	assert.Empty(t, decodeBody[[]EmployeeDTO](t, rec))
}

func TestEmployees_ValidationErrors(t *testing.T) {
	srv := setupTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/employees", map[string]string{"name": "X", "email": "not-an-email", "hire_date": "15/01/2023"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "required", resp.Fields["ID"])
	assert.Equal(t, "email", resp.Fields["Email"])
	assert.Equal(t, "datetime", resp.Fields["HireDate"])

	rec = srv.do(t, http.MethodPost, "/api/employees", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEmployees_NotFound(t *testing.T) {
	srv := setupTestServer(t)
	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, "/api/employees/ghost", nil).Code)
	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, "/api/employees/ghost/ledger", nil).Code)
}

func TestEmployees_Delete(t *testing.T) {
	// GIVEN: An employee with usage on file
	srv := setupTestServer(t)
	srv.createEmployee(t, "emp-1", "2023-01-15")
	rec := srv.do(t, http.MethodPost, "/api/employees/emp-1/usage", map[string]any{"hours": 8, "occurred_at": "2024-02-01T09:00:00+08:00"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// WHEN: Deleting it
	rec = srv.do(t, http.MethodDelete, "/api/employees/emp-1", nil)

	// THEN: It and its records are gone
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, "/api/employees/emp-1", nil).Code)
	usage, err := srv.handler.Store.GetApprovedAnnualLeaveUsage(context.Background(), "emp-1")
	require.NoError(t, err)
	assert.Empty(t, usage)

	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodDelete, "/api/employees/emp-1", nil).Code)
}

// =============================================================================
// LEDGER
// =============================================================================

func TestLedger_UsageScenario(t *testing.T) {
	// GIVEN: Hired 2023-01-15 with 16 hours taken on 2024-02-01
	srv := setupTestServer(t)
	srv.createEmployee(t, "emp-1", "2023-01-15")
	rec := srv.do(t, http.MethodPost, "/api/employees/emp-1/usage", map[string]any{"hours": 16, "occurred_at": "2024-02-01T09:00:00Z"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decodeBody[CreatedResponse](t, rec).ID)

	// WHEN: Reading the ledger (clock is 2024-08-01)
	rec = srv.do(t, http.MethodGet, "/api/employees/emp-1/ledger", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ledger := decodeBody[LedgerDTO](t, rec)

	// THEN: Year 1 and the half-year, newest first
	assert.Equal(t, "anniversary", ledger.CalculationMode)
	assert.Equal(t, "2024-08-01", ledger.AsOf)
	require.Len(t, ledger.Cycles, 2)

	y1 := ledger.Cycles[0]
	assert.Equal(t, 1.0, y1.CycleIndex)
	assert.Equal(t, "2024-01-15", y1.CycleStart)
	assert.Equal(t, "2025-01-14", y1.CycleEnd)
	assert.Equal(t, 7.0, y1.Entitlement)
	assert.Equal(t, 2.0, y1.Used)
	assert.Equal(t, 5.0, y1.Balance)
	assert.Equal(t, "active", y1.Status)

	half := ledger.Cycles[1]
	assert.Equal(t, 0.5, half.CycleIndex)
	assert.Equal(t, 3.0, half.Entitlement)
	assert.Equal(t, "expired", half.Status)
}

func TestLedger_ActiveAndAsOf(t *testing.T) {
	srv := setupTestServer(t)
	srv.createEmployee(t, "emp-1", "2023-01-15")

	rec := srv.do(t, http.MethodGet, "/api/employees/emp-1/ledger?active=true", nil)
	ledger := decodeBody[LedgerDTO](t, rec)
	require.Len(t, ledger.Cycles, 1)
	assert.Equal(t, 1.0, ledger.Cycles[0].CycleIndex)

	// Before year 1 started only the half-year exists
	rec = srv.do(t, http.MethodGet, "/api/employees/emp-1/ledger?as_of=2023-12-01", nil)
	ledger = decodeBody[LedgerDTO](t, rec)
	require.Len(t, ledger.Cycles, 1)
	assert.Equal(t, 0.5, ledger.Cycles[0].CycleIndex)

	rec = srv.do(t, http.MethodGet, "/api/employees/emp-1/ledger?as_of=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLedger_HireDateStates(t *testing.T) {
	srv := setupTestServer(t)
	srv.createEmployee(t, "no-date", "")
	srv.createEmployee(t, "future", "2025-01-01")

	rec := srv.do(t, http.MethodGet, "/api/employees/no-date/ledger", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ledger := decodeBody[LedgerDTO](t, rec)
	assert.True(t, ledger.HireDateMissing)
	assert.Empty(t, ledger.Cycles)

	rec = srv.do(t, http.MethodGet, "/api/employees/future/ledger", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSettleable_OnlyActivePositive(t *testing.T) {
	// GIVEN: Year 1 fully settled
	srv := setupTestServer(t)
	srv.createEmployee(t, "emp-1", "2023-01-15")
	rec := srv.do(t, http.MethodPost, "/api/employees/emp-1/settlements",
		map[string]any{"days": "7", "target_cycle": 1, "transacted_at": "2024-06-01"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// THEN: Nothing is left to settle
	rec = srv.do(t, http.MethodGet, "/api/employees/emp-1/settleable", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[LedgerDTO](t, rec).Cycles)
}

func TestLedger_OverSettledShowsRawBalance(t *testing.T) {
	srv := setupTestServer(t)
	srv.createEmployee(t, "emp-1", "2023-01-15")
	srv.do(t, http.MethodPost, "/api/employees/emp-1/settlements",
		map[string]any{"days": 9, "target_cycle": 1, "transacted_at": "2024-06-01"})
	srv.do(t, http.MethodPost, "/api/employees/emp-1/settlements",
		map[string]any{"days": 1, "target_cycle": 4, "pay_month": "2024-06"})

	ledger := decodeBody[LedgerDTO](t, srv.do(t, http.MethodGet, "/api/employees/emp-1/ledger", nil))
	assert.Equal(t, 0.0, ledger.Cycles[0].Balance)
	assert.Equal(t, -2.0, ledger.Cycles[0].RawBalance)
	require.Len(t, ledger.Unattributed, 1)
	assert.Equal(t, 1.0, ledger.Unattributed[0].Days)
}

// =============================================================================
// INTAKE
// =============================================================================

func TestIntake_Validation(t *testing.T) {
	srv := setupTestServer(t)
	srv.createEmployee(t, "emp-1", "2023-01-15")

	tests := []struct {
		name string
		path string
		body any
	}{
		{"zero hours", "/api/employees/emp-1/usage", map[string]any{"hours": 0, "occurred_at": "2024-02-01"}},
		{"missing date", "/api/employees/emp-1/usage", map[string]any{"hours": 8}},
		{"bad date", "/api/employees/emp-1/usage", map[string]any{"hours": 8, "occurred_at": "Feb 1"}},
		{"negative days", "/api/employees/emp-1/settlements", map[string]any{"days": -1, "transacted_at": "2024-02-01"}},
		{"no date at all", "/api/employees/emp-1/settlements", map[string]any{"days": 1}},
		{"bad pay month", "/api/employees/emp-1/settlements", map[string]any{"days": 1, "pay_month": "2024/06"}},
	}
	for _, tt := range tests {
		rec := srv.do(t, http.MethodPost, tt.path, tt.body)
		assert.Equalf(t, http.StatusBadRequest, rec.Code, "%s: %s", tt.name, rec.Body.String())
	}

	rec := srv.do(t, http.MethodPost, "/api/employees/ghost/usage", map[string]any{"hours": 8, "occurred_at": "2024-02-01"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// SETTINGS AND SUMMARY
// =============================================================================

func TestSettings_GetPut(t *testing.T) {
	srv := setupTestServer(t)

	rec := srv.do(t, http.MethodGet, "/api/settings", nil, TenantHeader, "acme")
	assert.Equal(t, "anniversary", decodeBody[SettingsDTO](t, rec).CalculationMode)

	rec = srv.do(t, http.MethodPut, "/api/settings", map[string]string{"calculation_mode": "calendar"}, TenantHeader, "acme")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/settings", nil, TenantHeader, "acme")
	assert.Equal(t, "calendar", decodeBody[SettingsDTO](t, rec).CalculationMode)

	// Default tenant untouched
	rec = srv.do(t, http.MethodGet, "/api/settings", nil)
	assert.Equal(t, "anniversary", decodeBody[SettingsDTO](t, rec).CalculationMode)

	rec = srv.do(t, http.MethodPut, "/api/settings", map[string]string{"calculation_mode": "fiscal"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSummary_CalendarTenant(t *testing.T) {
	srv := setupTestServer(t)
	srv.do(t, http.MethodPut, "/api/settings", map[string]string{"calculation_mode": "calendar"})
	srv.createEmployee(t, "emp-1", "2023-07-01")
	srv.createEmployee(t, "emp-2", "")

	rec := srv.do(t, http.MethodGet, "/api/summary?year=2023", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[SummaryResponse](t, rec)

	assert.Equal(t, "calendar", resp.CalculationMode)
	require.Len(t, resp.Rows, 2)
	row := resp.Rows[0] // "Name emp-1"
	require.NotNil(t, row.Cycle)
	assert.Equal(t, "2023年度", row.Cycle.Label)
	assert.Equal(t, 1.51, row.Cycle.Entitlement)
	assert.Nil(t, resp.Rows[1].Cycle)
	assert.Equal(t, 1.51, resp.TotalEntitlement)

	rec = srv.do(t, http.MethodGet, "/api/summary?year=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSummary_Export(t *testing.T) {
	srv := setupTestServer(t)
	srv.createEmployee(t, "emp-1", "2023-01-15")

	rec := srv.do(t, http.MethodGet, "/api/summary/export?year=2024", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/vnd.openxmlformats"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "annual-leave-default-2024.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellValue(summarySheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Employee ID", header)

	label, _ := f.GetCellValue(summarySheet, "E2")
	assert.Equal(t, "滿1年", label)
	entitlement, _ := f.GetCellValue(summarySheet, "H2")
	assert.Equal(t, "7", entitlement)
	total, _ := f.GetCellValue(summarySheet, "A3")
	assert.Equal(t, "Total", total)
}

func TestHealthz(t *testing.T) {
	srv := setupTestServer(t)
	rec := srv.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
