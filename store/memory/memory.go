// Package memory provides an in-memory LedgerStore.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/warp/leave-ledger/leave"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	employees map[string]*row
	order     []string
}

type row struct {
	balance int
	history []string
}

func New() *Memory {
	return &Memory{
		employees: make(map[string]*row),
	}
}

// GetSnapshot returns a copy of the employee's row.
func (m *Memory) GetSnapshot(_ context.Context, employeeID string) (leave.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.employees[employeeID]
	if !ok {
		return leave.Snapshot{}, fmt.Errorf("%w: %s", leave.ErrEmployeeNotFound, employeeID)
	}
	return leave.Snapshot{
		EmployeeID: employeeID,
		Balance:    r.balance,
		History:    append([]string(nil), r.history...),
	}, nil
}

// ApplyLeave checks every precondition before mutating, so a refused grant
// leaves no trace.
func (m *Memory) ApplyLeave(_ context.Context, g leave.Grant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.employees[g.EmployeeID]
	if !ok {
		return leave.NewStorageError("apply_leave", g.EmployeeID, leave.ErrEmployeeNotFound)
	}
	if r.balance != g.ExpectedBalance {
		return leave.NewStorageError("apply_leave", g.EmployeeID, leave.ErrConcurrentModification)
	}
	if g.NewBalance < 0 {
		return leave.NewStorageError("apply_leave", g.EmployeeID,
			fmt.Errorf("negative balance %d", g.NewBalance))
	}

	r.balance = g.NewBalance
	r.history = append(r.history, g.Dates...)
	return nil
}

// CountEmployees returns the number of provisioned employees.
func (m *Memory) CountEmployees(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.employees), nil
}

// UpsertEmployees sets balances and appends history dates not yet present.
func (m *Memory) UpsertEmployees(_ context.Context, employees []leave.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range employees {
		r, ok := m.employees[e.ID]
		if !ok {
			r = &row{}
			m.employees[e.ID] = r
			m.order = append(m.order, e.ID)
		}
		r.balance = e.Balance
		for _, d := range e.History {
			if !contains(r.history, d) {
				r.history = append(r.history, d)
			}
		}
	}
	return nil
}

// ListEmployees returns every employee in provisioning order.
func (m *Memory) ListEmployees(_ context.Context) ([]leave.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]leave.Employee, 0, len(m.order))
	for _, id := range m.order {
		r := m.employees[id]
		out = append(out, leave.Employee{
			ID:      id,
			Balance: r.balance,
			History: append([]string(nil), r.history...),
		})
	}
	return out, nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

var _ leave.LedgerStore = (*Memory)(nil)
