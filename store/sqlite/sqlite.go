/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements generic.TxStore (employees, cached balances, leave requests)
  on SQLite.

KEY TABLES:
  employees:       Roster records, entitlement cap, cached current balance
  leave_requests:  The leave ledger

AMOUNTS:
  Day amounts (entitlement, current_balance, days) are stored as decimal
  strings and parsed with shopspring/decimal, so 0.5-day requests never
  pick up float error. A NULL entitlement means unbounded.

STATUS TRANSITIONS:
  The only UPDATE on leave_requests is the compare-and-set:

    UPDATE leave_requests SET status = ? WHERE id = ? AND status = ?

  Two concurrent approvals cannot both match the row.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and a single open connection, so
  ":memory:" databases are shared by every query. WithTx holds the write
  lock for the whole callback; the tx-bound view never takes the lock.

USAGE:
  store, err := sqlite.New("./leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/leave-tracker/generic"
)

// timestampLayout is fixed-width so applied_on sorts correctly as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ generic.TxStore = (*Store)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store, err := NewWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewWithDB wraps an already opened database and migrates it.
func NewWithDB(db *sql.DB) (*Store, error) {
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
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
	-- Employees (roster + cached balance)
	CREATE TABLE IF NOT EXISTS employees (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL DEFAULT '',
		join_date TEXT NOT NULL,
		entitlement TEXT,
		current_balance TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);

	-- Leave requests (the ledger)
	CREATE TABLE IF NOT EXISTS leave_requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_name TEXT NOT NULL,
		leave_type TEXT NOT NULL DEFAULT '',
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		days TEXT NOT NULL,
		half_day BOOLEAN NOT NULL DEFAULT FALSE,
		status TEXT NOT NULL DEFAULT 'Pending',
		reason TEXT NOT NULL DEFAULT '',
		applied_on TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leave_requests_employee
		ON leave_requests(employee_name, applied_on DESC);
	CREATE INDEX IF NOT EXISTS idx_leave_requests_status
		ON leave_requests(status);
	CREATE INDEX IF NOT EXISTS idx_leave_requests_applied_on
		ON leave_requests(applied_on DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

// SeedEmployee inserts the employee unless the name is already present.
func (s *Store) SeedEmployee(ctx context.Context, emp generic.Employee) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return seedEmployee(ctx, s.db, emp)
}

func seedEmployee(ctx context.Context, q querier, emp generic.Employee) (bool, error) {
	query := `
		INSERT OR IGNORE INTO employees (name, role, join_date, entitlement, current_balance, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	balance := emp.CurrentBalance.Value.String()
	res, err := q.ExecContext(ctx, query,
		string(emp.Name),
		emp.Role,
		emp.JoinDate.String(),
		nullAmount(emp.Entitlement),
		balance,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return false, fmt.Errorf("failed to seed employee: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetEmployee retrieves an employee by name.
func (s *Store) GetEmployee(ctx context.Context, name generic.EmployeeName) (*generic.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getEmployee(ctx, s.db, name)
}

func getEmployee(ctx context.Context, q querier, name generic.EmployeeName) (*generic.Employee, error) {
	row := q.QueryRowContext(ctx,
		"SELECT name, role, join_date, entitlement, current_balance, created_at FROM employees WHERE name = ?",
		string(name),
	)
	emp, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

// ListEmployees returns all employees.
func (s *Store) ListEmployees(ctx context.Context) ([]generic.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listEmployees(ctx, s.db)
}

func listEmployees(ctx context.Context, q querier) ([]generic.Employee, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT name, role, join_date, entitlement, current_balance, created_at FROM employees ORDER BY name",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	employees := []generic.Employee{}
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// SetEntitlement overwrites the entitlement cap. nil stores NULL.
func (s *Store) SetEntitlement(ctx context.Context, name generic.EmployeeName, entitlement *generic.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setEntitlement(ctx, s.db, name, entitlement)
}

func setEntitlement(ctx context.Context, q querier, name generic.EmployeeName, entitlement *generic.Amount) error {
	res, err := q.ExecContext(ctx,
		"UPDATE employees SET entitlement = ? WHERE name = ?",
		nullAmount(entitlement), string(name),
	)
	if err != nil {
		return fmt.Errorf("failed to update entitlement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return generic.ErrEmployeeNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (generic.Employee, error) {
	var (
		emp         generic.Employee
		name        string
		joinDate    string
		entitlement sql.NullString
		balance     string
		createdAt   string
	)
	if err := row.Scan(&name, &emp.Role, &joinDate, &entitlement, &balance, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return emp, err
		}
		return emp, fmt.Errorf("failed to scan employee: %w", err)
	}

	emp.Name = generic.EmployeeName(name)
	emp.JoinDate, _ = generic.ParseDate(joinDate)
	if entitlement.Valid {
		a, err := parseDays(entitlement.String)
		if err != nil {
			return emp, fmt.Errorf("employee %s entitlement: %w", name, err)
		}
		emp.Entitlement = &a
	}
	current, err := parseDays(balance)
	if err != nil {
		return emp, fmt.Errorf("employee %s balance: %w", name, err)
	}
	emp.CurrentBalance = current
	emp.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return emp, nil
}

// =============================================================================
// BALANCE STORE
// =============================================================================

// CurrentBalance returns the cached balance, 0 for unknown employees.
func (s *Store) CurrentBalance(ctx context.Context, name generic.EmployeeName) (generic.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return currentBalance(ctx, s.db, name)
}

func currentBalance(ctx context.Context, q querier, name generic.EmployeeName) (generic.Amount, error) {
	var balance string
	err := q.QueryRowContext(ctx,
		"SELECT current_balance FROM employees WHERE name = ?", string(name),
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.ZeroDays(), nil
	}
	if err != nil {
		return generic.Amount{}, fmt.Errorf("failed to read balance: %w", err)
	}
	days, err := parseDays(balance)
	if err != nil {
		return generic.Amount{}, fmt.Errorf("employee %s balance: %w", name, err)
	}
	return days, nil
}

// SetBalance overwrites the cached balance.
func (s *Store) SetBalance(ctx context.Context, name generic.EmployeeName, balance generic.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setBalance(ctx, s.db, name, balance)
}

func setBalance(ctx context.Context, q querier, name generic.EmployeeName, balance generic.Amount) error {
	_, err := q.ExecContext(ctx,
		"UPDATE employees SET current_balance = ? WHERE name = ?",
		balance.Value.String(), string(name),
	)
	if err != nil {
		return fmt.Errorf("failed to set balance: %w", err)
	}
	return nil
}

// =============================================================================
// REQUEST STORE
// =============================================================================

const requestColumns = `id, employee_name, leave_type, start_date, end_date, days, half_day, status, reason, applied_on`

// InsertRequest stores a new leave request.
func (s *Store) InsertRequest(ctx context.Context, req generic.LeaveRequest) (generic.RequestID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertRequest(ctx, s.db, req)
}

func insertRequest(ctx context.Context, q querier, req generic.LeaveRequest) (generic.RequestID, error) {
	query := `
		INSERT INTO leave_requests
		(employee_name, leave_type, start_date, end_date, days, half_day, status, reason, applied_on)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := q.ExecContext(ctx, query,
		string(req.EmployeeName),
		req.LeaveType,
		req.StartDate.String(),
		req.EndDate.String(),
		req.Days.Value.String(),
		req.HalfDay,
		string(req.Status),
		req.Reason,
		req.AppliedOn.UTC().Format(timestampLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert leave request: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return generic.RequestID(id), nil
}

// GetRequest retrieves a request by ID.
func (s *Store) GetRequest(ctx context.Context, id generic.RequestID) (*generic.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getRequest(ctx, s.db, id)
}

func getRequest(ctx context.Context, q querier, id generic.RequestID) (*generic.LeaveRequest, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+requestColumns+" FROM leave_requests WHERE id = ?", int64(id),
	)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ListRequests returns matching requests, newest first.
func (s *Store) ListRequests(ctx context.Context, filter generic.RequestFilter) ([]generic.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listRequests(ctx, s.db, filter)
}

func listRequests(ctx context.Context, q querier, filter generic.RequestFilter) ([]generic.LeaveRequest, error) {
	var (
		where []string
		args  []any
	)
	if filter.EmployeeName != nil {
		where = append(where, "employee_name = ?")
		args = append(args, string(*filter.EmployeeName))
	}
	if filter.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*filter.Status))
	}

	query := "SELECT " + requestColumns + " FROM leave_requests"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY applied_on DESC, id DESC"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leave requests: %w", err)
	}
	defer rows.Close()

	requests := []generic.LeaveRequest{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// CompareAndSetStatus moves a request from one status to another.
func (s *Store) CompareAndSetStatus(ctx context.Context, id generic.RequestID, from, to generic.RequestStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return compareAndSetStatus(ctx, s.db, id, from, to)
}

func compareAndSetStatus(ctx context.Context, q querier, id generic.RequestID, from, to generic.RequestStatus) (bool, error) {
	res, err := q.ExecContext(ctx,
		"UPDATE leave_requests SET status = ? WHERE id = ? AND status = ?",
		string(to), int64(id), string(from),
	)
	if err != nil {
		return false, fmt.Errorf("failed to update status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func scanRequest(row rowScanner) (generic.LeaveRequest, error) {
	var (
		req       generic.LeaveRequest
		id        int64
		name      string
		startDate string
		endDate   string
		days      string
		status    string
		appliedOn string
	)
	err := row.Scan(&id, &name, &req.LeaveType, &startDate, &endDate, &days,
		&req.HalfDay, &status, &req.Reason, &appliedOn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return req, err
		}
		return req, fmt.Errorf("failed to scan leave request: %w", err)
	}

	req.ID = generic.RequestID(id)
	req.EmployeeName = generic.EmployeeName(name)
	req.StartDate, _ = generic.ParseDate(startDate)
	req.EndDate, _ = generic.ParseDate(endDate)
	if req.Days, err = parseDays(days); err != nil {
		return req, fmt.Errorf("leave request %d days: %w", id, err)
	}
	req.Status = generic.RequestStatus(status)
	req.AppliedOn, _ = time.Parse(timestampLayout, appliedOn)
	return req, nil
}

// =============================================================================
// TRANSACTIONAL STORE (generic.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store generic.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) SeedEmployee(ctx context.Context, emp generic.Employee) (bool, error) {
	return seedEmployee(ctx, ts.tx, emp)
}

func (ts *txStore) GetEmployee(ctx context.Context, name generic.EmployeeName) (*generic.Employee, error) {
	return getEmployee(ctx, ts.tx, name)
}

func (ts *txStore) ListEmployees(ctx context.Context) ([]generic.Employee, error) {
	return listEmployees(ctx, ts.tx)
}

func (ts *txStore) SetEntitlement(ctx context.Context, name generic.EmployeeName, entitlement *generic.Amount) error {
	return setEntitlement(ctx, ts.tx, name, entitlement)
}

func (ts *txStore) CurrentBalance(ctx context.Context, name generic.EmployeeName) (generic.Amount, error) {
	return currentBalance(ctx, ts.tx, name)
}

func (ts *txStore) SetBalance(ctx context.Context, name generic.EmployeeName, balance generic.Amount) error {
	return setBalance(ctx, ts.tx, name, balance)
}

func (ts *txStore) InsertRequest(ctx context.Context, req generic.LeaveRequest) (generic.RequestID, error) {
	return insertRequest(ctx, ts.tx, req)
}

func (ts *txStore) GetRequest(ctx context.Context, id generic.RequestID) (*generic.LeaveRequest, error) {
	return getRequest(ctx, ts.tx, id)
}

func (ts *txStore) ListRequests(ctx context.Context, filter generic.RequestFilter) ([]generic.LeaveRequest, error) {
	return listRequests(ctx, ts.tx, filter)
}

func (ts *txStore) CompareAndSetStatus(ctx context.Context, id generic.RequestID, from, to generic.RequestStatus) (bool, error) {
	return compareAndSetStatus(ctx, ts.tx, id, from, to)
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for tests).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"leave_requests", "employees"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullAmount(a *generic.Amount) sql.NullString {
	if a == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: a.Value.String(), Valid: true}
}

// parseDays reads a decimal column. A value that does not parse is a
// corrupt row, never zero.
func parseDays(value string) (generic.Amount, error) {
	days, err := generic.ParseDays(value)
	if err != nil {
		return generic.Amount{}, fmt.Errorf("failed to parse days %q: %w", value, err)
	}
	return days, nil
}
