/*
Package sqlite provides a SQLite-backed implementation of leave.LedgerStore.

PURPOSE:
  Durable, crash-consistent storage of employee balances and leave history.
  This is the only writer of the ledger tables.

KEY TABLES:
  employees:      One row per employee, current balance
  leave_history:  Append-only list of booked dates

CONSTRAINTS:
  - balance >= 0 is enforced by a CHECK, so a bad grant can never commit
  - leave_date is exactly 10 characters (YYYY-MM-DD)
  - leave_history.employee_id references employees (foreign keys are on)

ATOMIC APPLY:
  ApplyLeave runs in one transaction:
    UPDATE employees SET balance = new WHERE id = ? AND balance = expected
    INSERT INTO leave_history ... (one per date)
  Zero rows updated means the employee is gone or the balance moved since
  the snapshot; either way the transaction is rolled back and a
  *leave.StorageError is returned.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety within the process, and a single
  pooled connection: SQLite serialises writers anyway, and a ":memory:"
  database only exists on the connection that created it. The conditional
  UPDATE protects against writers in other processes.

WAL MODE:
  Opened with WAL (Write-Ahead Logging):
  - Readers don't block the writer
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./leave_management.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  validator := leave.NewValidator(store, leave.Options{})

MIGRATION:
  Schema is auto-migrated on New(). Seeding is NOT: run the provision
  command (or provision.SeedIfEmpty) explicitly.

SEE ALSO:
  - leave/store.go: Interface definition
  - store/postgres/postgres.go: Same contract on PostgreSQL
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/leave-ledger/leave"
)

// Store implements leave.LedgerStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		employee_id TEXT PRIMARY KEY,
		balance INTEGER NOT NULL CHECK (balance >= 0)
	);

	CREATE TABLE IF NOT EXISTS leave_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id TEXT NOT NULL,
		leave_date TEXT NOT NULL CHECK (length(leave_date) = 10),
		FOREIGN KEY (employee_id) REFERENCES employees (employee_id)
	);

	CREATE INDEX IF NOT EXISTS idx_leave_history_employee_date
		ON leave_history(employee_id, leave_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LEDGER STORE (leave.LedgerStore interface)
// =============================================================================

// GetSnapshot returns the balance and every booked date in insertion order.
// Both reads share one read transaction, so a writer in another process
// cannot commit between them.
func (s *Store) GetSnapshot(ctx context.Context, employeeID string) (leave.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return leave.Snapshot{}, leave.NewStorageError("get_snapshot", employeeID, err)
	}
	defer sqlTx.Rollback()

	snap := leave.Snapshot{EmployeeID: employeeID}

	err = sqlTx.QueryRowContext(ctx,
		"SELECT balance FROM employees WHERE employee_id = ?",
		employeeID,
	).Scan(&snap.Balance)
	if err == sql.ErrNoRows {
		return leave.Snapshot{}, fmt.Errorf("%w: %s", leave.ErrEmployeeNotFound, employeeID)
	}
	if err != nil {
		return leave.Snapshot{}, leave.NewStorageError("get_snapshot", employeeID, err)
	}

	history, err := queryHistory(ctx, sqlTx, employeeID)
	if err != nil {
		return leave.Snapshot{}, leave.NewStorageError("get_snapshot", employeeID, err)
	}
	snap.History = history
	return snap, nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryHistory(ctx context.Context, q queryer, employeeID string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT leave_date FROM leave_history WHERE employee_id = ? ORDER BY id",
		employeeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// ApplyLeave updates the balance and appends the dates atomically.
func (s *Store) ApplyLeave(ctx context.Context, g leave.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.applyLeave(ctx, g); err != nil {
		return leave.NewStorageError("apply_leave", g.EmployeeID, err)
	}
	return nil
}

func (s *Store) applyLeave(ctx context.Context, g leave.Grant) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	res, err := sqlTx.ExecContext(ctx,
		"UPDATE employees SET balance = ? WHERE employee_id = ? AND balance = ?",
		g.NewBalance, g.EmployeeID, g.ExpectedBalance,
	)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return missedUpdate(ctx, sqlTx, g.EmployeeID)
	}

	stmt, err := sqlTx.PrepareContext(ctx,
		"INSERT INTO leave_history (employee_id, leave_date) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare history insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range g.Dates {
		if _, err := stmt.ExecContext(ctx, g.EmployeeID, d); err != nil {
			return fmt.Errorf("failed to insert leave date %s: %w", d, err)
		}
	}

	return sqlTx.Commit()
}

// missedUpdate explains a conditional UPDATE that touched no row.
func missedUpdate(ctx context.Context, sqlTx *sql.Tx, employeeID string) error {
	var count int
	err := sqlTx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM employees WHERE employee_id = ?",
		employeeID,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check employee: %w", err)
	}
	if count == 0 {
		return leave.ErrEmployeeNotFound
	}
	return leave.ErrConcurrentModification
}

// =============================================================================
// PROVISIONING (provision.Provisioner interface)
// =============================================================================

// CountEmployees returns the number of provisioned employees.
func (s *Store) CountEmployees(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM employees").Scan(&count)
	return count, err
}

// UpsertEmployees creates or resets employees in one transaction. History
// dates already recorded for an employee are not inserted again.
func (s *Store) UpsertEmployees(ctx context.Context, employees []leave.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, e := range employees {
		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO employees (employee_id, balance) VALUES (?, ?)
			ON CONFLICT(employee_id) DO UPDATE SET balance = excluded.balance
		`, e.ID, e.Balance)
		if err != nil {
			return fmt.Errorf("failed to upsert employee %s: %w", e.ID, err)
		}

		for _, d := range e.History {
			_, err := sqlTx.ExecContext(ctx, `
				INSERT INTO leave_history (employee_id, leave_date)
				SELECT ?, ?
				WHERE NOT EXISTS (
					SELECT 1 FROM leave_history WHERE employee_id = ? AND leave_date = ?
				)
			`, e.ID, d, e.ID, d)
			if err != nil {
				return fmt.Errorf("failed to insert history for %s: %w", e.ID, err)
			}
		}
	}

	return sqlTx.Commit()
}

// ListEmployees returns every employee with their history, ordered by id.
func (s *Store) ListEmployees(ctx context.Context) ([]leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT employee_id, balance FROM employees ORDER BY employee_id")
	if err != nil {
		return nil, err
	}

	var employees []leave.Employee
	for rows.Next() {
		var e leave.Employee
		if err := rows.Scan(&e.ID, &e.Balance); err != nil {
			rows.Close()
			return nil, err
		}
		employees = append(employees, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Single connection: history is read after the employee cursor is closed.
	for i := range employees {
		history, err := queryHistory(ctx, s.db, employees[i].ID)
		if err != nil {
			return nil, err
		}
		employees[i].History = history
	}
	return employees, nil
}

var _ leave.LedgerStore = (*Store)(nil)
