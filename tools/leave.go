package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/warp/leave-ledger/leave"
)

// Ledger is what the leave tools need from the core.
type Ledger interface {
	Balance(ctx context.Context, employeeID string) (int, error)
	History(ctx context.Context, employeeID string) ([]string, error)
	RequestLeave(ctx context.Context, employeeID string, dates []string) leave.Outcome
}

const notFoundText = "Employee ID not found."

// NewLeaveRegistry registers get_leave_balance, apply_leave and
// get_leave_history over ledger.
func NewLeaveRegistry(ledger Ledger) *Registry {
	r := NewRegistry()
	r.Register(&BalanceTool{ledger: ledger})
	r.Register(&ApplyTool{ledger: ledger})
	r.Register(&HistoryTool{ledger: ledger})
	return r
}

func employeeSchema(extra map[string]any, required ...string) map[string]any {
	props := map[string]any{
		"employee_id": map[string]any{
			"type":        "string",
			"description": "Employee identifier, e.g. E001",
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   append([]string{"employee_id"}, required...),
	}
}

// BalanceTool reports remaining leave days.
type BalanceTool struct {
	ledger Ledger
}

func (t *BalanceTool) Name() string { return "get_leave_balance" }

func (t *BalanceTool) Description() string {
	return "Check the remaining leave balance for an employee"
}

func (t *BalanceTool) Parameters() map[string]any { return employeeSchema(nil) }

func (t *BalanceTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	id, err := stringArg(t.Name(), args, "employee_id")
	if err != nil {
		return "", err
	}
	balance, err := t.ledger.Balance(ctx, id)
	if errors.Is(err, leave.ErrEmployeeNotFound) {
		return notFoundText, nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Employee %s has %d leave days remaining.", id, balance), nil
}

// ApplyTool books leave on specific dates.
type ApplyTool struct {
	ledger Ledger
}

func (t *ApplyTool) Name() string { return "apply_leave" }

func (t *ApplyTool) Description() string {
	return "Apply leave for an employee on one or more dates in YYYY-MM-DD format. " +
		"Rejects malformed, past or already booked dates and requests exceeding the balance."
}

func (t *ApplyTool) Parameters() map[string]any {
	return employeeSchema(map[string]any{
		"leave_dates": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": `Dates to book, e.g. ["2025-06-10", "2025-06-11"]`,
		},
	}, "leave_dates")
}

// Execute always renders the outcome as text; only argument errors are
// returned as errors.
func (t *ApplyTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	id, err := stringArg(t.Name(), args, "employee_id")
	if err != nil {
		return "", err
	}
	dates, err := stringsArg(t.Name(), args, "leave_dates")
	if err != nil {
		return "", err
	}
	return t.ledger.RequestLeave(ctx, id, dates).Message(), nil
}

// HistoryTool lists booked dates.
type HistoryTool struct {
	ledger Ledger
}

func (t *HistoryTool) Name() string { return "get_leave_history" }

func (t *HistoryTool) Description() string {
	return "List the dates an employee has booked as leave"
}

func (t *HistoryTool) Parameters() map[string]any { return employeeSchema(nil) }

func (t *HistoryTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	id, err := stringArg(t.Name(), args, "employee_id")
	if err != nil {
		return "", err
	}
	dates, err := t.ledger.History(ctx, id)
	if errors.Is(err, leave.ErrEmployeeNotFound) {
		return notFoundText, nil
	}
	if err != nil {
		return "", err
	}
	if len(dates) == 0 {
		return fmt.Sprintf("Employee %s has no leave history.", id), nil
	}
	return fmt.Sprintf("Leave history for employee %s: %s.", id, strings.Join(dates, ", ")), nil
}
