// Package postgres implements leave.LedgerStore on PostgreSQL.
//
// Same tables and the same conditional-update contract as store/sqlite; the
// database provides the concurrency control, so there is no process mutex.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/warp/leave-ledger/leave"
)

type Store struct {
	db *sql.DB
}

// New opens dsn (a lib/pq connection string or URL) and migrates the schema.
func New(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (p *Store) Close() error {
	return p.db.Close()
}

func (p *Store) migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS employees (
		employee_id TEXT PRIMARY KEY,
		balance INTEGER NOT NULL CHECK (balance >= 0)
	);

	CREATE TABLE IF NOT EXISTS leave_history (
		id BIGSERIAL PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees (employee_id),
		leave_date TEXT NOT NULL CHECK (length(leave_date) = 10)
	);

	CREATE INDEX IF NOT EXISTS idx_leave_history_employee_date
		ON leave_history(employee_id, leave_date);
	`
	_, err := p.db.ExecContext(ctx, schema)
	return err
}

// GetSnapshot reads balance and history in one read-only transaction.
func (p *Store) GetSnapshot(ctx context.Context, employeeID string) (leave.Snapshot, error) {
	dbTx, err := p.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return leave.Snapshot{}, leave.NewStorageError("get_snapshot", employeeID, err)
	}
	defer dbTx.Rollback()

	snap := leave.Snapshot{EmployeeID: employeeID}

	err = dbTx.QueryRowContext(ctx,
		`SELECT balance FROM employees WHERE employee_id = $1`, employeeID,
	).Scan(&snap.Balance)
	if err == sql.ErrNoRows {
		return leave.Snapshot{}, fmt.Errorf("%w: %s", leave.ErrEmployeeNotFound, employeeID)
	}
	if err != nil {
		return leave.Snapshot{}, leave.NewStorageError("get_snapshot", employeeID, err)
	}

	rows, err := dbTx.QueryContext(ctx,
		`SELECT leave_date FROM leave_history WHERE employee_id = $1 ORDER BY id`, employeeID)
	if err != nil {
		return leave.Snapshot{}, leave.NewStorageError("get_snapshot", employeeID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return leave.Snapshot{}, leave.NewStorageError("get_snapshot", employeeID, err)
		}
		snap.History = append(snap.History, d)
	}
	if err := rows.Err(); err != nil {
		return leave.Snapshot{}, leave.NewStorageError("get_snapshot", employeeID, err)
	}
	return snap, nil
}

func (p *Store) ApplyLeave(ctx context.Context, g leave.Grant) error {
	if err := p.applyLeave(ctx, g); err != nil {
		return leave.NewStorageError("apply_leave", g.EmployeeID, err)
	}
	return nil
}

func (p *Store) applyLeave(ctx context.Context, g leave.Grant) (err error) {
	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	res, err := dbTx.ExecContext(ctx,
		`UPDATE employees SET balance = $1 WHERE employee_id = $2 AND balance = $3`,
		g.NewBalance, g.EmployeeID, g.ExpectedBalance)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists bool
		err = dbTx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM employees WHERE employee_id = $1)`, g.EmployeeID,
		).Scan(&exists)
		if err != nil {
			return err
		}
		if !exists {
			err = leave.ErrEmployeeNotFound
			return err
		}
		err = leave.ErrConcurrentModification
		return err
	}

	for _, d := range g.Dates {
		_, err = dbTx.ExecContext(ctx,
			`INSERT INTO leave_history (employee_id, leave_date) VALUES ($1, $2)`,
			g.EmployeeID, d)
		if err != nil {
			return err
		}
	}
	return dbTx.Commit()
}

func (p *Store) CountEmployees(ctx context.Context) (int, error) {
	var count int
	err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM employees`).Scan(&count)
	return count, err
}

func (p *Store) UpsertEmployees(ctx context.Context, employees []leave.Employee) (err error) {
	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	for _, e := range employees {
		_, err = dbTx.ExecContext(ctx, `
			INSERT INTO employees (employee_id, balance) VALUES ($1, $2)
			ON CONFLICT (employee_id) DO UPDATE SET balance = EXCLUDED.balance`,
			e.ID, e.Balance)
		if err != nil {
			return fmt.Errorf("failed to upsert employee %s: %w", e.ID, err)
		}
		for _, d := range e.History {
			_, err = dbTx.ExecContext(ctx, `
				INSERT INTO leave_history (employee_id, leave_date)
				SELECT $1::text, $2::text
				WHERE NOT EXISTS (
					SELECT 1 FROM leave_history WHERE employee_id = $1 AND leave_date = $2
				)`, e.ID, d)
			if err != nil {
				return fmt.Errorf("failed to insert history for %s: %w", e.ID, err)
			}
		}
	}
	return dbTx.Commit()
}

func (p *Store) ListEmployees(ctx context.Context) ([]leave.Employee, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT e.employee_id, e.balance, h.leave_date
		FROM employees e
		LEFT JOIN leave_history h ON h.employee_id = e.employee_id
		ORDER BY e.employee_id, h.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []leave.Employee
	for rows.Next() {
		var (
			id      string
			balance int
			date    sql.NullString
		)
		if err := rows.Scan(&id, &balance, &date); err != nil {
			return nil, err
		}
		if n := len(employees); n == 0 || employees[n-1].ID != id {
			employees = append(employees, leave.Employee{ID: id, Balance: balance})
		}
		if date.Valid {
			last := &employees[len(employees)-1]
			last.History = append(last.History, date.String)
		}
	}
	return employees, rows.Err()
}

var _ leave.LedgerStore = (*Store)(nil)
