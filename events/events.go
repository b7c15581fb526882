// Package events defines the domain events emitted after a leave request
// has been committed.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LeaveGranted is published once per accepted request.
type LeaveGranted struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employee_id"`
	Dates      []string  `json:"dates"`
	NewBalance int       `json:"new_balance"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewLeaveGranted stamps a fresh event id.
func NewLeaveGranted(employeeID string, dates []string, newBalance int, at time.Time) LeaveGranted {
	return LeaveGranted{
		ID:         uuid.New().String(),
		EmployeeID: employeeID,
		Dates:      append([]string(nil), dates...),
		NewBalance: newBalance,
		OccurredAt: at.UTC(),
	}
}

// Publisher delivers events to whoever listens.
type Publisher interface {
	Publish(ctx context.Context, event LeaveGranted) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, LeaveGranted) error { return nil }
