/*
Package sqlite provides a SQLite-backed implementation of generic.Source.

PURPOSE:
  Persists the inputs of the annual leave ledger: employees, approved
  annual leave usage, settlements and per-tenant settings. Ledgers
  themselves are never stored; they are recomputed from these rows on
  every read.

INTERFACES IMPLEMENTED:
  generic.Directory:        Employee lookups (per tenant)
  generic.UsageSource:      Approved annual leave hours
  generic.SettlementSource: Cash-out settlements
  generic.SettingsSource:   Tenant calculation mode

KEY TABLES:
  employees:       Employee records; hire_date is nullable raw text
  leave_usage:     Approved annual leave, in hours
  settlements:     Settled days with optional target cycle and notes
  tenant_settings: calculation_mode per tenant
  audit_runs:      History of unattributed-settlement audits

HIRE DATES:
  hire_date is stored as the text it arrived with. A NULL or empty value is
  "no hire date yet". Anything else is handed to Employee.ResolveHireDate,
  so a malformed value surfaces as InvalidHireDateError on ledger reads
  rather than failing the row scan.

SETTLEMENT DATES:
  A settlement's transaction date is, in order: its transacted_at, the
  first day of its pay_month (YYYY-MM), its created_at.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite is opened in WAL mode so
  readers don't block each other.

USAGE:
  store, err := sqlite.New("./leave_ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := annualleave.NewService(store, logger)

SEE ALSO:
  - generic/source.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/leave-ledger/generic"
)

// Store implements generic.Source using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Compile-time check that Store implements generic.Source
var _ generic.Source = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each connection to ":memory:" is its own database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Employees
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL DEFAULT 'default',
		name TEXT NOT NULL,
		email TEXT,
		hire_date TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_tenant
		ON employees(tenant_id, id);

	-- Approved annual leave usage, in hours
	CREATE TABLE IF NOT EXISTS leave_usage (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		hours TEXT NOT NULL,
		occurred_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leave_usage_employee_date
		ON leave_usage(employee_id, occurred_at);

	-- Settlements (cash-out of unused days)
	CREATE TABLE IF NOT EXISTS settlements (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		days TEXT NOT NULL,
		target_cycle TEXT,
		notes TEXT,
		transacted_at TEXT,
		pay_month TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_settlements_employee
		ON settlements(employee_id, created_at);

	-- Tenant settings
	CREATE TABLE IF NOT EXISTS tenant_settings (
		tenant_id TEXT PRIMARY KEY,
		calculation_mode TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Audit runs
	CREATE TABLE IF NOT EXISTS audit_runs (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'running',
		employees INTEGER DEFAULT 0,
		unattributed INTEGER DEFAULT 0,
		over_settled INTEGER DEFAULT 0,
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_runs_started
		ON audit_runs(started_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// DIRECTORY (generic.Directory interface)
// =============================================================================

// SaveEmployee inserts or updates an employee. An empty tenant means the
// default tenant.
func (s *Store) SaveEmployee(ctx context.Context, emp generic.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if emp.TenantID == "" {
		emp.TenantID = generic.DefaultTenant
	}

	query := `
		INSERT INTO employees (id, tenant_id, name, email, hire_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			tenant_id = excluded.tenant_id,
			name = excluded.name,
			email = excluded.email,
			hire_date = excluded.hire_date
	`

	_, err := s.db.ExecContext(ctx, query,
		emp.ID, emp.TenantID, emp.Name, nullString(emp.Email),
		nullString(hireDateText(emp)),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save employee %s: %w", emp.ID, err)
	}
	return nil
}

// GetEmployee retrieves an employee by ID.
func (s *Store) GetEmployee(ctx context.Context, id generic.EmployeeID) (generic.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, tenant_id, name, email, hire_date, created_at FROM employees WHERE id = ?",
		id,
	)
	emp, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.Employee{}, &generic.NotFoundError{Kind: "employee", ID: string(id)}
	}
	if err != nil {
		return generic.Employee{}, fmt.Errorf("failed to load employee %s: %w", id, err)
	}
	return emp, nil
}

// ListEmployees returns a tenant's employees ordered by ID.
func (s *Store) ListEmployees(ctx context.Context, tenantID generic.TenantID) ([]generic.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, tenant_id, name, email, hire_date, created_at FROM employees WHERE tenant_id = ? ORDER BY id",
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []generic.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// DeleteEmployee removes an employee and their usage and settlements. A
// missing employee is a NotFoundError.
func (s *Store) DeleteEmployee(ctx context.Context, id generic.EmployeeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM employees WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return &generic.NotFoundError{Kind: "employee", ID: string(id)}
	}
	for _, q := range []string{
		"DELETE FROM leave_usage WHERE employee_id = ?",
		"DELETE FROM settlements WHERE employee_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListTenants returns every tenant that has employees or settings.
func (s *Store) ListTenants(ctx context.Context) ([]generic.TenantID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT tenant_id FROM employees
		UNION
		SELECT tenant_id FROM tenant_settings
		ORDER BY tenant_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []generic.TenantID
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tenants = append(tenants, generic.TenantID(t))
	}
	return tenants, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (generic.Employee, error) {
	var emp generic.Employee
	var id, tenant, createdAt string
	var email, hireDate sql.NullString

	if err := row.Scan(&id, &tenant, &emp.Name, &email, &hireDate, &createdAt); err != nil {
		return generic.Employee{}, err
	}
	emp.ID = generic.EmployeeID(id)
	emp.TenantID = generic.TenantID(tenant)
	emp.Email = email.String
	emp.RawHireDate = strings.TrimSpace(hireDate.String)
	emp.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return emp, nil
}

// hireDateText is the value written to employees.hire_date.
func hireDateText(emp generic.Employee) string {
	if emp.HireDate != nil {
		return emp.HireDate.String()
	}
	return strings.TrimSpace(emp.RawHireDate)
}

// =============================================================================
// USAGE (generic.UsageSource interface)
// =============================================================================

// RecordUsage stores an approved annual leave record. An empty ID is
// assigned a new UUID, which is returned.
func (s *Store) RecordUsage(ctx context.Context, rec generic.UsageRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Hours.IsNegative() {
		return "", fmt.Errorf("usage hours %s: %w", rec.Hours, generic.ErrInvalidAmount)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leave_usage (id, employee_id, hours, occurred_at, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		rec.ID, rec.EmployeeID, rec.Hours.String(),
		rec.OccurredAt.Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("failed to record usage: %w", err)
	}
	return rec.ID, nil
}

// GetApprovedAnnualLeaveUsage returns an employee's usage ordered by time.
// Timestamps keep the offset they were recorded with, so the calendar date
// of each record is the employee's local date.
func (s *Store) GetApprovedAnnualLeaveUsage(ctx context.Context, employeeID generic.EmployeeID) ([]generic.UsageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, hours, occurred_at
		FROM leave_usage
		WHERE employee_id = ?
		ORDER BY occurred_at ASC
	`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []generic.UsageRecord
	for rows.Next() {
		var rec generic.UsageRecord
		var empID, hours, occurredAt string
		if err := rows.Scan(&rec.ID, &empID, &hours, &occurredAt); err != nil {
			return nil, err
		}
		rec.EmployeeID = generic.EmployeeID(empID)
		if rec.Hours, err = decimal.NewFromString(hours); err != nil {
			return nil, fmt.Errorf("usage %s hours %q: %w", rec.ID, hours, generic.ErrInvalidAmount)
		}
		rec.OccurredAt, _ = time.Parse(time.RFC3339, occurredAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Text order is not time order across offsets
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].OccurredAt.Before(records[j].OccurredAt)
	})
	return records, nil
}

// =============================================================================
// SETTLEMENTS (generic.SettlementSource interface)
// =============================================================================

// SettlementInput is a settlement as submitted. PayMonth (YYYY-MM) is used
// as the transaction date when TransactedAt is zero.
type SettlementInput struct {
	generic.SettlementRecord
	PayMonth string
}

// RecordSettlement stores a settlement and returns its ID.
func (s *Store) RecordSettlement(ctx context.Context, in SettlementInput) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := in.SettlementRecord
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Days.IsNegative() {
		return "", fmt.Errorf("settled days %s: %w", rec.Days, generic.ErrInvalidAmount)
	}

	var target, transactedAt *string
	if rec.TargetCycle != nil {
		t := rec.TargetCycle.String()
		target = &t
	}
	if !rec.TransactedAt.IsZero() {
		t := rec.TransactedAt.Format(time.RFC3339)
		transactedAt = &t
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settlements (id, employee_id, days, target_cycle, notes, transacted_at, pay_month, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID, rec.EmployeeID, rec.Days.String(), target, nullString(rec.Notes),
		transactedAt, nullString(in.PayMonth),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("failed to record settlement: %w", err)
	}
	return rec.ID, nil
}

// GetSettlements returns an employee's settlements in arrival order.
func (s *Store) GetSettlements(ctx context.Context, employeeID generic.EmployeeID) ([]generic.SettlementRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, days, target_cycle, notes, transacted_at, pay_month, created_at
		FROM settlements
		WHERE employee_id = ?
		ORDER BY created_at ASC, rowid ASC
	`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []generic.SettlementRecord
	for rows.Next() {
		var rec generic.SettlementRecord
		var empID, days, createdAt string
		var target, notes, transactedAt, payMonth sql.NullString
		if err := rows.Scan(&rec.ID, &empID, &days, &target, &notes, &transactedAt, &payMonth, &createdAt); err != nil {
			return nil, err
		}

		rec.EmployeeID = generic.EmployeeID(empID)
		rec.Notes = notes.String
		if rec.Days, err = decimal.NewFromString(days); err != nil {
			return nil, fmt.Errorf("settlement %s days %q: %w", rec.ID, days, generic.ErrInvalidAmount)
		}
		// An unreadable tag is treated as untagged.
		if target.Valid {
			if d, err := decimal.NewFromString(strings.TrimSpace(target.String)); err == nil {
				rec.TargetCycle = &d
			}
		}
		rec.TransactedAt = settlementDate(transactedAt, payMonth, createdAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func settlementDate(transactedAt, payMonth sql.NullString, createdAt string) time.Time {
	if transactedAt.Valid {
		if t, err := time.Parse(time.RFC3339, transactedAt.String); err == nil {
			return t
		}
	}
	if payMonth.Valid {
		if t, err := time.Parse("2006-01", strings.TrimSpace(payMonth.String)); err == nil {
			return t
		}
	}
	t, _ := time.Parse(time.RFC3339, createdAt)
	return t
}

// =============================================================================
// SETTINGS (generic.SettingsSource interface)
// =============================================================================

// SetCalculationMode stores a tenant's calculation mode.
func (s *Store) SetCalculationMode(ctx context.Context, tenantID generic.TenantID, mode generic.CalculationMode) error {
	if !mode.Valid() {
		return fmt.Errorf("%q: %w", mode, generic.ErrInvalidCalculationMode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenant_settings (tenant_id, calculation_mode, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(tenant_id) DO UPDATE SET
			calculation_mode = excluded.calculation_mode,
			updated_at = excluded.updated_at
	`, tenantID, string(mode), time.Now().UTC().Format(time.RFC3339))
	return err
}

// GetCalculationMode returns a tenant's mode, or the default when the
// tenant has no setting or an unrecognised one.
func (s *Store) GetCalculationMode(ctx context.Context, tenantID generic.TenantID) (generic.CalculationMode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT calculation_mode FROM tenant_settings WHERE tenant_id = ?", tenantID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.DefaultMode, nil
	}
	if err != nil {
		return "", err
	}

	mode, err := generic.ParseCalculationMode(raw)
	if err != nil {
		return generic.DefaultMode, nil
	}
	return mode, nil
}

// =============================================================================
// AUDIT RUNS
// =============================================================================

// Audit run statuses
const (
	AuditRunning   = "running"
	AuditCompleted = "completed"
	AuditFailed    = "failed"
)

// AuditRun records one pass of the unattributed-settlement audit over a tenant.
type AuditRun struct {
	ID           string
	TenantID     generic.TenantID
	Status       string
	Employees    int
	Unattributed int
	OverSettled  int
	Error        string
	StartedAt    time.Time
	CompletedAt  *time.Time
}

// SaveAuditRun inserts or updates an audit run.
func (s *Store) SaveAuditRun(ctx context.Context, r AuditRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO audit_runs (id, tenant_id, status, employees, unattributed, over_settled,
			error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			employees = excluded.employees,
			unattributed = excluded.unattributed,
			over_settled = excluded.over_settled,
			error = excluded.error,
			completed_at = excluded.completed_at
	`

	var completedAt *string
	if r.CompletedAt != nil {
		c := r.CompletedAt.UTC().Format(time.RFC3339)
		completedAt = &c
	}

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.TenantID, r.Status, r.Employees, r.Unattributed, r.OverSettled,
		nullString(r.Error), r.StartedAt.UTC().Format(time.RFC3339), completedAt,
	)
	return err
}

// ListAuditRuns returns the most recent runs first. A limit of 0 or less
// returns all of them.
func (s *Store) ListAuditRuns(ctx context.Context, limit int) ([]AuditRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, tenant_id, status, employees, unattributed, over_settled,
			error, started_at, completed_at
		FROM audit_runs
		ORDER BY started_at DESC, rowid DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []AuditRun
	for rows.Next() {
		var r AuditRun
		var tenant, startedAt string
		var errText, completedAt sql.NullString
		if err := rows.Scan(
			&r.ID, &tenant, &r.Status, &r.Employees, &r.Unattributed, &r.OverSettled,
			&errText, &startedAt, &completedAt,
		); err != nil {
			return nil, err
		}

		r.TenantID = generic.TenantID(tenant)
		r.Error = errText.String
		r.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		if completedAt.Valid {
			t, _ := time.Parse(time.RFC3339, completedAt.String)
			r.CompletedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"leave_usage", "settlements", "employees", "tenant_settings", "audit_runs"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
