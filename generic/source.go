/*
source.go - Interfaces the ledger reads its inputs through

PURPOSE:
  The ledger core performs no I/O. Callers pre-fetch everything through
  these interfaces, which keeps the core a pure function of its inputs and
  lets storage technology change freely.

KEY INTERFACES:
  Directory:        Staff directory (id, tenant, hire date)
  UsageSource:      Approved annual-leave usage per employee
  SettlementSource: Cash settlements per employee
  SettingsSource:   Per-tenant calculation system

IMPLEMENTATIONS:
  - generic/store/memory.go: In-memory for testing
  - store/sqlite/sqlite.go: SQLite

ISOLATION:
  Implementations are expected to scope reads by tenant/employee. The core
  does not enforce it.
*/
package generic

import "context"

// Directory resolves employees. GetEmployee returns a NotFoundError for
// unknown ids.
type Directory interface {
	GetEmployee(ctx context.Context, id EmployeeID) (Employee, error)
	ListEmployees(ctx context.Context, tenantID TenantID) ([]Employee, error)
}

// UsageSource returns approved annual-leave usage for one employee.
type UsageSource interface {
	GetApprovedAnnualLeaveUsage(ctx context.Context, id EmployeeID) ([]UsageRecord, error)
}

// SettlementSource returns every settlement recorded for one employee.
type SettlementSource interface {
	GetSettlements(ctx context.Context, id EmployeeID) ([]SettlementRecord, error)
}

// SettingsSource returns a tenant's calculation mode, DefaultMode if unset.
type SettingsSource interface {
	GetCalculationMode(ctx context.Context, tenantID TenantID) (CalculationMode, error)
}

// Source bundles every input the ledger service needs.
type Source interface {
	Directory
	UsageSource
	SettlementSource
	SettingsSource
}
