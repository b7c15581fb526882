package leave

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LEDGER RECORDS
// =============================================================================

// Employee is a provisioned ledger row together with its initial history.
type Employee struct {
	ID      string
	Balance int
	History []string
}

// Snapshot is a point-in-time read of one employee's balance and history.
// History is in storage (insertion) order and may contain repeats.
type Snapshot struct {
	EmployeeID string
	Balance    int
	History    []string
}

// Booked reports whether date is already in the history.
func (s Snapshot) Booked(date string) bool {
	for _, d := range s.History {
		if d == date {
			return true
		}
	}
	return false
}

// SortedHistory returns the booked dates deduplicated and ascending.
// ISO dates with four-digit years sort lexically in calendar order.
func (s Snapshot) SortedHistory() []string {
	seen := make(map[string]bool, len(s.History))
	dates := make([]string, 0, len(s.History))
	for _, d := range s.History {
		if seen[d] {
			continue
		}
		seen[d] = true
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// Grant is a validated write handed to LedgerStore.ApplyLeave.
// ExpectedBalance is the balance the decision was made against; the store
// refuses the write if the persisted balance no longer matches it.
type Grant struct {
	EmployeeID      string
	ExpectedBalance int
	NewBalance      int
	Dates           []string
}

// =============================================================================
// USAGE - Read-side projection
// =============================================================================

// Usage summarises how much of an employee's leave has been taken.
type Usage struct {
	EmployeeID  string
	Balance     int
	DaysTaken   int
	Utilization decimal.Decimal // DaysTaken / (DaysTaken + Balance), 4 places
}

// UsageOf projects a snapshot into a Usage.
func UsageOf(s Snapshot) Usage {
	taken := len(s.SortedHistory())
	u := Usage{
		EmployeeID:  s.EmployeeID,
		Balance:     s.Balance,
		DaysTaken:   taken,
		Utilization: decimal.Zero,
	}
	if total := taken + s.Balance; total > 0 {
		u.Utilization = decimal.NewFromInt(int64(taken)).
			DivRound(decimal.NewFromInt(int64(total)), 4)
	}
	return u
}
