/*
store.go - Persistence interface for the leave ledger

PURPOSE:
  Defines the boundary between the validator and the database. The store is
  a dumb transactional persistence layer: it never decides whether a request
  is admissible, it only reads snapshots and applies grants atomically.

CONTRACT:
  GetSnapshot:
    - side-effect free; repeated calls between writes return equal snapshots
    - unknown employee -> error matching ErrEmployeeNotFound
    - any other fault -> *StorageError
  ApplyLeave:
    - balance update and every history insert commit together or not at all
    - balance is updated only if it still equals Grant.ExpectedBalance
    - unknown employee -> *StorageError wrapping ErrEmployeeNotFound
    - stale balance    -> *StorageError wrapping ErrConcurrentModification
    - partial work is rolled back before returning

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go:     SQLite (default)
  - store/postgres/postgres.go: PostgreSQL
  - store/memory/memory.go:     In-memory for tests and demos

SEE ALSO:
  - validator.go: The only caller of ApplyLeave
  - provision/provision.go: Creates the employee rows read here
*/
package leave

import "context"

// LedgerStore handles persistence of balances and leave history.
type LedgerStore interface {
	// GetSnapshot returns the current balance and full history.
	GetSnapshot(ctx context.Context, employeeID string) (Snapshot, error)

	// ApplyLeave atomically sets the new balance and appends the dates.
	ApplyLeave(ctx context.Context, grant Grant) error
}
