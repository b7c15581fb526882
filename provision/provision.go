/*
provision.go - Explicit provisioning of employees and initial history

PURPOSE:
  Employees are created here and nowhere else. Nothing in the ledger seeds
  itself on first access; the provision command (or a test) calls Seed or
  SeedIfEmpty deliberately.

SOURCES:
  - Sample():        E001 (18 days, 2024-12-25 and 2025-01-01), E002 (20 days)
  - LoadWorkbook():  first sheet of an .xlsx file, see excel.go

VALIDATION:
  Seed data is checked before anything is written: non-empty unique ids,
  non-negative balances, history dates that pass leave.ParseDate.

SEE ALSO:
  - store/sqlite/sqlite.go: UpsertEmployees, CountEmployees
*/
package provision

import (
	"context"
	"fmt"

	"github.com/warp/leave-ledger/leave"
)

// Provisioner is the write side used only by provisioning.
type Provisioner interface {
	CountEmployees(ctx context.Context) (int, error)
	UpsertEmployees(ctx context.Context, employees []leave.Employee) error
}

// Sample returns the reference seed data.
func Sample() []leave.Employee {
	return []leave.Employee{
		{ID: "E001", Balance: 18, History: []string{"2024-12-25", "2025-01-01"}},
		{ID: "E002", Balance: 20},
	}
}

// Seed validates employees and upserts them in one transaction.
func Seed(ctx context.Context, p Provisioner, employees []leave.Employee) error {
	if err := Validate(employees); err != nil {
		return err
	}
	if len(employees) == 0 {
		return nil
	}
	return p.UpsertEmployees(ctx, employees)
}

// SeedIfEmpty seeds only when no employee exists yet. It reports whether
// anything was written.
func SeedIfEmpty(ctx context.Context, p Provisioner, employees []leave.Employee) (bool, error) {
	count, err := p.CountEmployees(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to count employees: %w", err)
	}
	if count > 0 {
		return false, nil
	}
	if err := Seed(ctx, p, employees); err != nil {
		return false, err
	}
	return len(employees) > 0, nil
}

// Validate checks seed data without touching storage.
func Validate(employees []leave.Employee) error {
	seen := make(map[string]bool, len(employees))
	for i, e := range employees {
		if e.ID == "" {
			return fmt.Errorf("employee %d: missing id", i+1)
		}
		if seen[e.ID] {
			return fmt.Errorf("employee %s: listed twice", e.ID)
		}
		seen[e.ID] = true
		if e.Balance < 0 {
			return fmt.Errorf("employee %s: negative balance %d", e.ID, e.Balance)
		}
		for _, d := range e.History {
			if _, err := leave.ParseDate(d); err != nil {
				return fmt.Errorf("employee %s: %w", e.ID, err)
			}
		}
	}
	return nil
}
