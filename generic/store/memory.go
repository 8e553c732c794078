// Package store provides Source implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/leave-ledger/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	employees   map[generic.EmployeeID]generic.Employee
	usage       map[generic.EmployeeID][]generic.UsageRecord
	settlements map[generic.EmployeeID][]generic.SettlementRecord
	modes       map[generic.TenantID]generic.CalculationMode
}

// Compile-time check that Memory implements generic.Source
var _ generic.Source = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		employees:   make(map[generic.EmployeeID]generic.Employee),
		usage:       make(map[generic.EmployeeID][]generic.UsageRecord),
		settlements: make(map[generic.EmployeeID][]generic.SettlementRecord),
		modes:       make(map[generic.TenantID]generic.CalculationMode),
	}
}

// PutEmployee inserts or replaces an employee. An empty tenant means default.
func (m *Memory) PutEmployee(emp generic.Employee) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if emp.TenantID == "" {
		emp.TenantID = generic.DefaultTenant
	}
	m.employees[emp.ID] = emp
}

// AddUsage appends approved usage, kept ordered by OccurredAt.
func (m *Memory) AddUsage(recs ...generic.UsageRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range recs {
		list := m.usage[r.EmployeeID]
		// Binary search for insertion point
		i := sort.Search(len(list), func(i int) bool {
			return list[i].OccurredAt.After(r.OccurredAt)
		})
		list = append(list, generic.UsageRecord{})
		copy(list[i+1:], list[i:])
		list[i] = r
		m.usage[r.EmployeeID] = list
	}
}

// AddSettlements appends settlements in arrival order.
func (m *Memory) AddSettlements(recs ...generic.SettlementRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range recs {
		m.settlements[r.EmployeeID] = append(m.settlements[r.EmployeeID], r)
	}
}

// SetCalculationMode stores a tenant's setting.
func (m *Memory) SetCalculationMode(tenantID generic.TenantID, mode generic.CalculationMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modes[tenantID] = mode
}

func (m *Memory) GetEmployee(_ context.Context, id generic.EmployeeID) (generic.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	emp, ok := m.employees[id]
	if !ok {
		return generic.Employee{}, &generic.NotFoundError{Kind: "employee", ID: string(id)}
	}
	return emp, nil
}

func (m *Memory) ListEmployees(_ context.Context, tenantID generic.TenantID) ([]generic.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []generic.Employee
	for _, emp := range m.employees {
		if emp.TenantID == tenantID {
			result = append(result, emp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) GetApprovedAnnualLeaveUsage(_ context.Context, id generic.EmployeeID) ([]generic.UsageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]generic.UsageRecord, len(m.usage[id]))
	copy(result, m.usage[id])
	return result, nil
}

func (m *Memory) GetSettlements(_ context.Context, id generic.EmployeeID) ([]generic.SettlementRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]generic.SettlementRecord, len(m.settlements[id]))
	copy(result, m.settlements[id])
	return result, nil
}

func (m *Memory) GetCalculationMode(_ context.Context, tenantID generic.TenantID) (generic.CalculationMode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if mode, ok := m.modes[tenantID]; ok {
		return mode, nil
	}
	return generic.DefaultMode, nil
}
