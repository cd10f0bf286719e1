/*
store.go - Persistence interface for employees, balances and leave requests

PURPOSE:
  Defines the interface between the ledger logic and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  EmployeeStore: Roster records and entitlement caps
  BalanceStore:  Cached current balance per employee
  RequestStore:  Leave requests and their status transitions
  TxStore:       All of the above with atomic multi-statement writes

STATUS TRANSITIONS:
  RequestStore has no general "update" method. The only mutation of a
  stored request is CompareAndSetStatus, which succeeds only if the row
  still carries the expected status. Approval runs the status change and
  the balance refresh in one WithTx call.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - timeoff/ledger.go: Uses these interfaces
*/
package generic

import (
	"context"
	"time"
)

// =============================================================================
// EMPLOYEE
// =============================================================================

// Employee is the persisted roster record.
type Employee struct {
	Name           EmployeeName
	Role           string
	JoinDate       TimePoint
	Entitlement    *Amount // nil = unbounded
	CurrentBalance Amount
	CreatedAt      time.Time
}

// EmployeeStore handles roster records.
type EmployeeStore interface {
	// SeedEmployee inserts the employee if no record with that name exists.
	// Returns true when a row was inserted.
	SeedEmployee(ctx context.Context, emp Employee) (bool, error)

	// GetEmployee returns nil, nil when the employee does not exist.
	GetEmployee(ctx context.Context, name EmployeeName) (*Employee, error)

	// ListEmployees returns all employees ordered by name.
	ListEmployees(ctx context.Context) ([]Employee, error)

	// SetEntitlement overwrites the cap. nil clears it.
	// Returns ErrEmployeeNotFound for unknown names.
	SetEntitlement(ctx context.Context, name EmployeeName, entitlement *Amount) error
}

// =============================================================================
// BALANCE STORE
// =============================================================================

// BalanceStore holds each employee's cached current balance.
type BalanceStore interface {
	// CurrentBalance returns 0 for unknown employees.
	CurrentBalance(ctx context.Context, name EmployeeName) (Amount, error)

	// SetBalance overwrites unconditionally. The balance may be negative.
	SetBalance(ctx context.Context, name EmployeeName, balance Amount) error
}

// =============================================================================
// REQUEST STORE
// =============================================================================

// RequestStore handles the leave ledger.
type RequestStore interface {
	// InsertRequest stores a new request and returns its assigned ID.
	InsertRequest(ctx context.Context, req LeaveRequest) (RequestID, error)

	// GetRequest returns nil, nil when the request does not exist.
	GetRequest(ctx context.Context, id RequestID) (*LeaveRequest, error)

	// ListRequests returns matching requests, most recently applied first.
	ListRequests(ctx context.Context, filter RequestFilter) ([]LeaveRequest, error)

	// CompareAndSetStatus moves id from `from` to `to` and reports whether
	// the row matched. A false result with nil error means the request is
	// missing or no longer in `from`.
	CompareAndSetStatus(ctx context.Context, id RequestID, from, to RequestStatus) (bool, error)
}

// =============================================================================
// COMBINED + TRANSACTIONAL STORE
// =============================================================================

// Store is the full persistence surface used by the ledger.
type Store interface {
	EmployeeStore
	BalanceStore
	RequestStore
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
