/*
errors.go - Error types for the leave ledger

PURPOSE:
  All error types in one place. The validator never returns these for a
  rejected request (it returns an Outcome), but stores, provisioning and
  callers that prefer errors.Is() use them.

ERROR CATEGORIES:
  1. Rejection errors - one sentinel per Outcome kind
  2. Store errors     - StorageError wraps any persistence fault and always
                        unwraps to ErrStorageFailure

USAGE:
  if err := store.ApplyLeave(ctx, grant); err != nil {
      if errors.Is(err, leave.ErrConcurrentModification) {
          // balance changed since the snapshot was read
      }
  }

SEE ALSO:
  - outcome.go: Outcome.Err() converts a rejection into a RejectionError
  - store/sqlite/sqlite.go: Produces StorageError
*/
package leave

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEmployeeNotFound is returned when the employee id does not resolve.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrEmptyRequest is returned when a request carries no dates.
	ErrEmptyRequest = errors.New("no leave dates provided")

	// ErrMalformedDate is returned when a date is not literally YYYY-MM-DD.
	ErrMalformedDate = errors.New("malformed date")

	// ErrInvalidCalendarDate is returned for well-formed strings that name no
	// real day (2025-02-30, 2025-13-01).
	ErrInvalidCalendarDate = errors.New("invalid calendar date")

	// ErrPastDate is returned when a date is before the processing date.
	ErrPastDate = errors.New("date is in the past")

	// ErrDateAlreadyBooked is returned when a date is already in the history.
	ErrDateAlreadyBooked = errors.New("date already booked")

	// ErrInsufficientBalance is returned when more days are requested than remain.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrStorageFailure marks every infrastructure-level failure.
	ErrStorageFailure = errors.New("storage failure")

	// ErrConcurrentModification is returned when the balance changed between
	// the snapshot read and the conditional write.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// StorageError wraps a persistence fault. It matches both ErrStorageFailure
// and its cause with errors.Is.
type StorageError struct {
	Op         string
	EmployeeID string
	Err        error
}

func (e *StorageError) Error() string {
	if e.EmployeeID == "" {
		return fmt.Sprintf("storage failure in %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage failure in %s for %s: %v", e.Op, e.EmployeeID, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorageFailure, e.Err}
}

// NewStorageError wraps err unless it is nil.
func NewStorageError(op, employeeID string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, EmployeeID: employeeID, Err: err}
}

// RejectionError is a non-accepted Outcome seen as an error.
type RejectionError struct {
	Outcome Outcome
}

func (e *RejectionError) Error() string {
	return e.Outcome.Message()
}

func (e *RejectionError) Unwrap() error {
	if e.Outcome.Kind == KindStorageFailure && e.Outcome.Cause != nil {
		return &StorageError{Op: "request_leave", EmployeeID: e.Outcome.EmployeeID, Err: e.Outcome.Cause}
	}
	return e.Outcome.Kind.sentinel()
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageFailure)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrEmptyRequest) ||
		errors.Is(err, ErrMalformedDate) ||
		errors.Is(err, ErrInvalidCalendarDate) ||
		errors.Is(err, ErrPastDate) ||
		errors.Is(err, ErrDateAlreadyBooked) ||
		errors.Is(err, ErrInsufficientBalance)
}
