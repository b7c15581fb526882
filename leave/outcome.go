package leave

import "fmt"

// =============================================================================
// OUTCOME - Tagged result of RequestLeave
// =============================================================================

// Kind tags an Outcome. Callers branch on it instead of catching errors.
type Kind int

const (
	KindAccepted Kind = iota
	KindEmployeeNotFound
	KindEmptyRequest
	KindMalformedDate
	KindInvalidCalendarDate
	KindPastDate
	KindDateAlreadyBooked
	KindInsufficientBalance
	KindStorageFailure
)

var kindNames = map[Kind]string{
	KindAccepted:            "accepted",
	KindEmployeeNotFound:    "employee_not_found",
	KindEmptyRequest:        "empty_request",
	KindMalformedDate:       "malformed_date",
	KindInvalidCalendarDate: "invalid_calendar_date",
	KindPastDate:            "past_date",
	KindDateAlreadyBooked:   "date_already_booked",
	KindInsufficientBalance: "insufficient_balance",
	KindStorageFailure:      "storage_failure",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) sentinel() error {
	switch k {
	case KindEmployeeNotFound:
		return ErrEmployeeNotFound
	case KindEmptyRequest:
		return ErrEmptyRequest
	case KindMalformedDate:
		return ErrMalformedDate
	case KindInvalidCalendarDate:
		return ErrInvalidCalendarDate
	case KindPastDate:
		return ErrPastDate
	case KindDateAlreadyBooked:
		return ErrDateAlreadyBooked
	case KindInsufficientBalance:
		return ErrInsufficientBalance
	case KindStorageFailure:
		return ErrStorageFailure
	default:
		return nil
	}
}

// Outcome is the result of one leave request. Only the fields relevant to
// Kind are set.
type Outcome struct {
	Kind       Kind
	EmployeeID string

	Date  string // offending date (MalformedDate .. DateAlreadyBooked)
	Today string // processing date (PastDate)

	Requested int // InsufficientBalance and Accepted
	Available int // InsufficientBalance

	NewBalance int // Accepted

	Cause error // StorageFailure
}

// Accepted reports whether the request was granted and persisted.
func (o Outcome) Accepted() bool {
	return o.Kind == KindAccepted
}

// Err returns nil for an accepted outcome and a *RejectionError otherwise.
func (o Outcome) Err() error {
	if o.Accepted() {
		return nil
	}
	return &RejectionError{Outcome: o}
}

// Message renders the outcome as the text returned to tool callers.
func (o Outcome) Message() string {
	switch o.Kind {
	case KindAccepted:
		return fmt.Sprintf("Leave applied successfully for %d day(s) for %s. New balance: %d.",
			o.Requested, o.EmployeeID, o.NewBalance)
	case KindEmployeeNotFound:
		return "Employee ID not found."
	case KindEmptyRequest:
		return "No leave dates provided. Please specify the dates you want to apply for."
	case KindMalformedDate:
		return fmt.Sprintf("Invalid date format: '%s'. Please use YYYY-MM-DD format.", o.Date)
	case KindInvalidCalendarDate:
		return fmt.Sprintf("Invalid date value: '%s'. Please ensure dates are correct (e.g., not 2023-02-30).", o.Date)
	case KindPastDate:
		return fmt.Sprintf("Cannot apply for leave in the past: '%s' is before today (%s).", o.Date, o.Today)
	case KindDateAlreadyBooked:
		return fmt.Sprintf("Date %s is already booked as leave for employee %s.", o.Date, o.EmployeeID)
	case KindInsufficientBalance:
		return fmt.Sprintf("Insufficient leave balance for %s. Requested: %d day(s), Available: %d.",
			o.EmployeeID, o.Requested, o.Available)
	case KindStorageFailure:
		return "Failed to update leave records in the database. Please try again or contact support if the issue persists."
	default:
		return o.Kind.String()
	}
}
