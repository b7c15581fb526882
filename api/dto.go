/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the leave
  package's types from the external contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/leave-ledger/leave"
)

// EmployeeDTO represents an employee in list responses.
type EmployeeDTO struct {
	ID      string   `json:"id"`
	Balance int      `json:"balance"`
	History []string `json:"history"`
}

// BalanceDTO is the balance endpoint response.
type BalanceDTO struct {
	EmployeeID  string          `json:"employee_id"`
	Balance     int             `json:"balance"`
	DaysTaken   int             `json:"days_taken"`
	Utilization decimal.Decimal `json:"utilization"`
}

// HistoryDTO lists booked dates ascending.
type HistoryDTO struct {
	EmployeeID string   `json:"employee_id"`
	Dates      []string `json:"dates"`
}

// LeaveRequest is the body of POST /api/employees/{id}/leave.
type LeaveRequest struct {
	Dates []string `json:"dates"`
}

// OutcomeDTO reports the result of a leave request, accepted or not.
type OutcomeDTO struct {
	Status     string `json:"status"` // outcome kind, "accepted" on success
	EmployeeID string `json:"employee_id"`
	Message    string `json:"message"`
	Date       string `json:"date,omitempty"`
	Today      string `json:"today,omitempty"`
	Requested  int    `json:"requested,omitempty"`
	Available  *int   `json:"available,omitempty"`
	NewBalance *int   `json:"new_balance,omitempty"`
	Retryable  bool   `json:"retryable,omitempty"`
}

// ToolDTO describes a callable tool.
type ToolDTO struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolResultDTO wraps a tool's text result.
type ToolResultDTO struct {
	Tool   string `json:"tool"`
	Result string `json:"result"`
}

// ErrorResponse is returned for every non-outcome error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toOutcomeDTO(o leave.Outcome) OutcomeDTO {
	dto := OutcomeDTO{
		Status:     o.Kind.String(),
		EmployeeID: o.EmployeeID,
		Message:    o.Message(),
		Date:       o.Date,
		Today:      o.Today,
	}
	switch o.Kind {
	case leave.KindAccepted:
		dto.Requested = o.Requested
		dto.NewBalance = intPtr(o.NewBalance)
	case leave.KindInsufficientBalance:
		dto.Requested = o.Requested
		dto.Available = intPtr(o.Available)
	case leave.KindStorageFailure:
		dto.Retryable = true
	}
	return dto
}

func intPtr(n int) *int {
	return &n
}
