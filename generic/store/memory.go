// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/leave-tracker/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	employees map[generic.EmployeeName]generic.Employee
	requests  map[generic.RequestID]generic.LeaveRequest
	nextID    generic.RequestID
}

var _ generic.TxStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		employees: make(map[generic.EmployeeName]generic.Employee),
		requests:  make(map[generic.RequestID]generic.LeaveRequest),
		nextID:    1,
	}
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (m *Memory) SeedEmployee(_ context.Context, emp generic.Employee) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seedLocked(emp), nil
}

func (m *Memory) seedLocked(emp generic.Employee) bool {
	if _, ok := m.employees[emp.Name]; ok {
		return false
	}
	if emp.CreatedAt.IsZero() {
		emp.CreatedAt = time.Now().UTC()
	}
	if emp.CurrentBalance.Unit == "" {
		emp.CurrentBalance = generic.ZeroDays()
	}
	m.employees[emp.Name] = emp
	return true
}

func (m *Memory) GetEmployee(_ context.Context, name generic.EmployeeName) (*generic.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getEmployeeLocked(name), nil
}

func (m *Memory) getEmployeeLocked(name generic.EmployeeName) *generic.Employee {
	emp, ok := m.employees[name]
	if !ok {
		return nil
	}
	return &emp
}

func (m *Memory) ListEmployees(_ context.Context) ([]generic.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listEmployeesLocked(), nil
}

func (m *Memory) listEmployeesLocked() []generic.Employee {
	result := make([]generic.Employee, 0, len(m.employees))
	for _, emp := range m.employees {
		result = append(result, emp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

func (m *Memory) SetEntitlement(_ context.Context, name generic.EmployeeName, entitlement *generic.Amount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setEntitlementLocked(name, entitlement)
}

func (m *Memory) setEntitlementLocked(name generic.EmployeeName, entitlement *generic.Amount) error {
	emp, ok := m.employees[name]
	if !ok {
		return generic.ErrEmployeeNotFound
	}
	emp.Entitlement = entitlement
	m.employees[name] = emp
	return nil
}

// =============================================================================
// BALANCES
// =============================================================================

func (m *Memory) CurrentBalance(_ context.Context, name generic.EmployeeName) (generic.Amount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentBalanceLocked(name), nil
}

func (m *Memory) currentBalanceLocked(name generic.EmployeeName) generic.Amount {
	emp, ok := m.employees[name]
	if !ok {
		return generic.ZeroDays()
	}
	return emp.CurrentBalance
}

func (m *Memory) SetBalance(_ context.Context, name generic.EmployeeName, balance generic.Amount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setBalanceLocked(name, balance)
	return nil
}

// Unknown names are ignored, matching an UPDATE that hits no rows.
func (m *Memory) setBalanceLocked(name generic.EmployeeName, balance generic.Amount) {
	emp, ok := m.employees[name]
	if !ok {
		return
	}
	emp.CurrentBalance = balance
	m.employees[name] = emp
}

// =============================================================================
// REQUESTS
// =============================================================================

func (m *Memory) InsertRequest(_ context.Context, req generic.LeaveRequest) (generic.RequestID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertRequestLocked(req), nil
}

func (m *Memory) insertRequestLocked(req generic.LeaveRequest) generic.RequestID {
	req.ID = m.nextID
	m.nextID++
	m.requests[req.ID] = req
	return req.ID
}

func (m *Memory) GetRequest(_ context.Context, id generic.RequestID) (*generic.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getRequestLocked(id), nil
}

func (m *Memory) getRequestLocked(id generic.RequestID) *generic.LeaveRequest {
	req, ok := m.requests[id]
	if !ok {
		return nil
	}
	return &req
}

func (m *Memory) ListRequests(_ context.Context, filter generic.RequestFilter) ([]generic.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listRequestsLocked(filter), nil
}

func (m *Memory) listRequestsLocked(filter generic.RequestFilter) []generic.LeaveRequest {
	result := make([]generic.LeaveRequest, 0)
	for _, req := range m.requests {
		if filter.EmployeeName != nil && req.EmployeeName != *filter.EmployeeName {
			continue
		}
		if filter.Status != nil && req.Status != *filter.Status {
			continue
		}
		result = append(result, req)
	}
	generic.SortNewestFirst(result)
	return result
}

func (m *Memory) CompareAndSetStatus(_ context.Context, id generic.RequestID, from, to generic.RequestStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.casLocked(id, from, to), nil
}

func (m *Memory) casLocked(id generic.RequestID, from, to generic.RequestStatus) bool {
	req, ok := m.requests[id]
	if !ok || req.Status != from {
		return false
	}
	req.Status = to
	m.requests[id] = req
	return true
}

// =============================================================================
// TRANSACTIONAL VIEW
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(ctx context.Context, fn func(generic.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()
	view := &txMemoryView{parent: m}

	if err := fn(view); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	employees map[generic.EmployeeName]generic.Employee
	requests  map[generic.RequestID]generic.LeaveRequest
	nextID    generic.RequestID
}

func (m *Memory) snapshot() memorySnapshot {
	emps := make(map[generic.EmployeeName]generic.Employee, len(m.employees))
	for k, v := range m.employees {
		emps[k] = v
	}
	reqs := make(map[generic.RequestID]generic.LeaveRequest, len(m.requests))
	for k, v := range m.requests {
		reqs[k] = v
	}
	return memorySnapshot{employees: emps, requests: reqs, nextID: m.nextID}
}

func (m *Memory) restore(s memorySnapshot) {
	m.employees = s.employees
	m.requests = s.requests
	m.nextID = s.nextID
}

// txMemoryView runs with the parent's lock already held.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) SeedEmployee(_ context.Context, emp generic.Employee) (bool, error) {
	return tv.parent.seedLocked(emp), nil
}

func (tv *txMemoryView) GetEmployee(_ context.Context, name generic.EmployeeName) (*generic.Employee, error) {
	return tv.parent.getEmployeeLocked(name), nil
}

func (tv *txMemoryView) ListEmployees(_ context.Context) ([]generic.Employee, error) {
	return tv.parent.listEmployeesLocked(), nil
}

func (tv *txMemoryView) SetEntitlement(_ context.Context, name generic.EmployeeName, entitlement *generic.Amount) error {
	return tv.parent.setEntitlementLocked(name, entitlement)
}

func (tv *txMemoryView) CurrentBalance(_ context.Context, name generic.EmployeeName) (generic.Amount, error) {
	return tv.parent.currentBalanceLocked(name), nil
}

func (tv *txMemoryView) SetBalance(_ context.Context, name generic.EmployeeName, balance generic.Amount) error {
	tv.parent.setBalanceLocked(name, balance)
	return nil
}

func (tv *txMemoryView) InsertRequest(_ context.Context, req generic.LeaveRequest) (generic.RequestID, error) {
	return tv.parent.insertRequestLocked(req), nil
}

func (tv *txMemoryView) GetRequest(_ context.Context, id generic.RequestID) (*generic.LeaveRequest, error) {
	return tv.parent.getRequestLocked(id), nil
}

func (tv *txMemoryView) ListRequests(_ context.Context, filter generic.RequestFilter) ([]generic.LeaveRequest, error) {
	return tv.parent.listRequestsLocked(filter), nil
}

func (tv *txMemoryView) CompareAndSetStatus(_ context.Context, id generic.RequestID, from, to generic.RequestStatus) (bool, error) {
	return tv.parent.casLocked(id, from, to), nil
}
