/*
validator.go - Leave request admission and the single delegated write

PURPOSE:
  Decides whether a leave request may be granted and, if so, asks the
  LedgerStore to apply it exactly once. All policy lives here; the store
  only persists.

PIPELINE (fail-fast, first failure wins):
  1. Employee must resolve                  -> EmployeeNotFound
  2. At least one date                      -> EmptyRequest
  3. Per date, in input order:
     a. literal YYYY-MM-DD                  -> MalformedDate
     b. real calendar day                   -> InvalidCalendarDate
     c. not before today                    -> PastDate
     d. not already in history              -> DateAlreadyBooked
  4. len(dates) <= balance                  -> InsufficientBalance
  5. ApplyLeave(balance, balance-len(dates)) -> StorageFailure | Accepted

  Steps 1-4 never write. A rejected request leaves the ledger untouched.

REPEATED DATES:
  A date repeated inside one request but absent from history is accepted
  and counted twice, unless Policy.RejectRepeatedDates is set, in which case
  the second occurrence is reported as DateAlreadyBooked.

CONCURRENCY:
  Read and write are two storage interactions, so two requests for the same
  employee could both validate against the same balance. Two guards:
  - RequestLeave holds a per-employee mutex across read+write, released
    before the event is published; entries exist only while in use
  - ApplyLeave is conditional on the balance that was read, which also covers
    writers in other processes sharing the database
  Each storage call and the event publish run under Options.StorageTimeout.

SEE ALSO:
  - outcome.go: Outcome kinds and messages
  - store.go:   LedgerStore contract
*/
package leave

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/warp/leave-ledger/events"
	"github.com/warp/leave-ledger/logger"
)

// DefaultStorageTimeout bounds each storage call when Options leaves it zero.
const DefaultStorageTimeout = 5 * time.Second

// Policy holds the tunable admission rules.
type Policy struct {
	RejectRepeatedDates bool
}

// Options configures a Validator. Zero values select the defaults.
type Options struct {
	Policy         Policy
	StorageTimeout time.Duration
	Location       *time.Location   // zone that defines "today"; UTC if nil
	Now            func() time.Time // clock; time.Now if nil
	Publisher      events.Publisher // events.Nop if nil
	Logger         logger.Logger    // logger.NewNop() if nil
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator is the leave request front door.
type Validator struct {
	store     LedgerStore
	policy    Policy
	timeout   time.Duration
	location  *time.Location
	now       func() time.Time
	publisher events.Publisher
	logger    logger.Logger

	locksMu sync.Mutex
	locks   map[string]*employeeLock
}

// NewValidator creates a validator over store.
func NewValidator(store LedgerStore, opts Options) *Validator {
	v := &Validator{
		store:     store,
		policy:    opts.Policy,
		timeout:   opts.StorageTimeout,
		location:  opts.Location,
		now:       opts.Now,
		publisher: opts.Publisher,
		logger:    opts.Logger,
		locks:     make(map[string]*employeeLock),
	}
	if v.timeout <= 0 {
		v.timeout = DefaultStorageTimeout
	}
	if v.location == nil {
		v.location = time.UTC
	}
	if v.now == nil {
		v.now = time.Now
	}
	if v.publisher == nil {
		v.publisher = events.Nop{}
	}
	if v.logger == nil {
		v.logger = logger.NewNop()
	}
	return v
}

// employeeLock is a per-employee mutex shared by every request in flight for
// that employee. refs is guarded by Validator.locksMu.
type employeeLock struct {
	mu   sync.Mutex
	refs int
}

// lockEmployee serialises requests for employeeID and returns the unlock
// func. The map entry is dropped once no request holds or waits on it, so
// the map only ever holds employees with requests in flight.
func (v *Validator) lockEmployee(employeeID string) func() {
	v.locksMu.Lock()
	l, ok := v.locks[employeeID]
	if !ok {
		l = &employeeLock{}
		v.locks[employeeID] = l
	}
	l.refs++
	v.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		v.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(v.locks, employeeID)
		}
		v.locksMu.Unlock()
	}
}

// RequestLeave validates and, if admissible, books dates for employeeID.
// The LeaveGranted event is published after the employee lock is released.
func (v *Validator) RequestLeave(ctx context.Context, employeeID string, dates []string) Outcome {
	out := v.decide(ctx, employeeID, dates)
	if out.Accepted() {
		v.publish(ctx, employeeID, dates, out.NewBalance)
	}
	return out
}

// decide runs the pipeline and the write under the employee lock.
func (v *Validator) decide(ctx context.Context, employeeID string, dates []string) Outcome {
	unlock := v.lockEmployee(employeeID)
	defer unlock()

	snap, err := v.snapshot(ctx, employeeID)
	if err != nil {
		if errors.Is(err, ErrEmployeeNotFound) {
			return Outcome{Kind: KindEmployeeNotFound, EmployeeID: employeeID}
		}
		v.logger.LogError(ctx, "Failed to read leave snapshot", err, "employee_id", employeeID)
		return Outcome{Kind: KindStorageFailure, EmployeeID: employeeID, Cause: err}
	}

	today := Today(v.now(), v.location)
	out := Evaluate(snap, dates, today, v.policy)
	if !out.Accepted() {
		v.logger.LogInfo(ctx, "Leave request rejected",
			"employee_id", employeeID,
			"reason", out.Kind.String(),
			"date", out.Date)
		return out
	}

	grant := Grant{
		EmployeeID:      employeeID,
		ExpectedBalance: snap.Balance,
		NewBalance:      out.NewBalance,
		Dates:           dates,
	}
	if err := v.apply(ctx, grant); err != nil {
		v.logger.LogError(ctx, "Failed to apply leave", err,
			"employee_id", employeeID,
			"requested", len(dates),
			"retryable", IsRetryable(err))
		return Outcome{Kind: KindStorageFailure, EmployeeID: employeeID, Cause: err}
	}

	v.logger.LogInfo(ctx, "Leave applied",
		"employee_id", employeeID,
		"days", len(dates),
		"new_balance", out.NewBalance)
	return out
}

// publish emits LeaveGranted under the storage timeout. The ledger is
// already committed; a failed publish is only logged.
func (v *Validator) publish(ctx context.Context, employeeID string, dates []string, newBalance int) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	event := events.NewLeaveGranted(employeeID, dates, newBalance, v.now())
	if err := v.publisher.Publish(ctx, event); err != nil {
		v.logger.LogWarning(ctx, "Failed to publish leave event",
			"employee_id", employeeID,
			"event_id", event.ID,
			"error", err.Error())
	}
}

// Evaluate runs the admission checks after the employee has resolved.
// It is pure: the returned Outcome is Accepted with NewBalance computed, or
// the first rejection found. Nothing is written.
func Evaluate(snap Snapshot, dates []string, today time.Time, policy Policy) Outcome {
	id := snap.EmployeeID
	if len(dates) == 0 {
		return Outcome{Kind: KindEmptyRequest, EmployeeID: id}
	}

	var seen map[string]bool
	if policy.RejectRepeatedDates {
		seen = make(map[string]bool, len(dates))
	}

	for _, date := range dates {
		day, err := ParseDate(date)
		switch {
		case errors.Is(err, ErrMalformedDate):
			return Outcome{Kind: KindMalformedDate, EmployeeID: id, Date: date}
		case err != nil:
			return Outcome{Kind: KindInvalidCalendarDate, EmployeeID: id, Date: date}
		}

		if day.Before(today) {
			return Outcome{
				Kind:       KindPastDate,
				EmployeeID: id,
				Date:       date,
				Today:      today.Format(DateLayout),
			}
		}

		if snap.Booked(date) || seen[date] {
			return Outcome{Kind: KindDateAlreadyBooked, EmployeeID: id, Date: date}
		}
		if seen != nil {
			seen[date] = true
		}
	}

	requested := len(dates)
	if requested > snap.Balance {
		return Outcome{
			Kind:       KindInsufficientBalance,
			EmployeeID: id,
			Requested:  requested,
			Available:  snap.Balance,
		}
	}

	return Outcome{
		Kind:       KindAccepted,
		EmployeeID: id,
		Requested:  requested,
		NewBalance: snap.Balance - requested,
	}
}

// =============================================================================
// READ SIDE - Projections of GetSnapshot
// =============================================================================

// Balance returns the remaining leave days.
func (v *Validator) Balance(ctx context.Context, employeeID string) (int, error) {
	snap, err := v.snapshot(ctx, employeeID)
	if err != nil {
		return 0, err
	}
	return snap.Balance, nil
}

// History returns the booked dates, deduplicated and ascending.
func (v *Validator) History(ctx context.Context, employeeID string) ([]string, error) {
	snap, err := v.snapshot(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	return snap.SortedHistory(), nil
}

// Usage returns balance, days taken and utilization.
func (v *Validator) Usage(ctx context.Context, employeeID string) (Usage, error) {
	snap, err := v.snapshot(ctx, employeeID)
	if err != nil {
		return Usage{}, err
	}
	return UsageOf(snap), nil
}

// =============================================================================
// STORAGE CALLS - Bounded by the storage timeout
// =============================================================================

func (v *Validator) snapshot(ctx context.Context, employeeID string) (Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	snap, err := v.store.GetSnapshot(ctx, employeeID)
	if err != nil {
		if errors.Is(err, ErrEmployeeNotFound) || errors.Is(err, ErrStorageFailure) {
			return Snapshot{}, err
		}
		return Snapshot{}, NewStorageError("get_snapshot", employeeID, err)
	}
	return snap, nil
}

func (v *Validator) apply(ctx context.Context, grant Grant) error {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	if err := v.store.ApplyLeave(ctx, grant); err != nil {
		if errors.Is(err, ErrStorageFailure) {
			return err
		}
		return NewStorageError("apply_leave", grant.EmployeeID, err)
	}
	return nil
}
