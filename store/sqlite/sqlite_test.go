package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-tracker/generic"
	"github.com/warp/leave-tracker/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func days(v float64) generic.Amount {
	return generic.NewAmount(v, generic.UnitDays)
}

func ptr[T any](v T) *T { return &v }

func seed(t *testing.T, store *sqlite.Store, name string, entitlement *generic.Amount) {
	_, err := store.SeedEmployee(context.Background(), generic.Employee{
		Name:           generic.EmployeeName(name),
		Role:           "Staff",
		JoinDate:       generic.NewTimePoint(2020, time.January, 1),
		Entitlement:    entitlement,
		CurrentBalance: generic.ZeroDays(),
	})
	require.NoError(t, err)
}

func pendingRequest(name string, appliedOn time.Time) generic.LeaveRequest {
	return generic.LeaveRequest{
		EmployeeName: generic.EmployeeName(name),
		LeaveType:    "Annual",
		StartDate:    generic.NewTimePoint(2026, time.March, 10),
		EndDate:      generic.NewTimePoint(2026, time.March, 12),
		Days:         days(3),
		Status:       generic.RequestPending,
		AppliedOn:    appliedOn,
	}
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestStore_SeedEmployee_IsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	emp := generic.Employee{
		Name:        "ABIGAIL",
		Role:        "Staff",
		JoinDate:    generic.NewTimePoint(2025, time.November, 3),
		Entitlement: ptr(days(16)),
	}

	inserted, err := store.SeedEmployee(ctx, emp)
	require.NoError(t, err)
	assert.True(t, inserted)

	emp.Entitlement = ptr(days(99))
	inserted, err = store.SeedEmployee(ctx, emp)
	require.NoError(t, err)
	assert.False(t, inserted, "second seed must not overwrite")

	got, err := store.GetEmployee(ctx, "ABIGAIL")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.Entitlement)
	assert.True(t, got.Entitlement.Equal(days(16)))
	assert.Equal(t, "2025-11-03", got.JoinDate.String())
}

func TestStore_GetEmployee_Missing(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetEmployee(context.Background(), "NOBODY")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_SetEntitlement_NullMeansUnbounded(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seed(t, store, "JUBILIN MORIS", ptr(days(18)))

	require.NoError(t, store.SetEntitlement(ctx, "JUBILIN MORIS", nil))

	got, err := store.GetEmployee(ctx, "JUBILIN MORIS")
	require.NoError(t, err)
	assert.Nil(t, got.Entitlement)

	require.NoError(t, store.SetEntitlement(ctx, "JUBILIN MORIS", ptr(days(16.5))))
	got, err = store.GetEmployee(ctx, "JUBILIN MORIS")
	require.NoError(t, err)
	require.NotNil(t, got.Entitlement)
	assert.Equal(t, "16.5", got.Entitlement.String())
}

func TestStore_SetEntitlement_UnknownEmployee(t *testing.T) {
	store := newTestStore(t)

	err := store.SetEntitlement(context.Background(), "NOBODY", ptr(days(10)))
	assert.ErrorIs(t, err, generic.ErrEmployeeNotFound)
}

func TestStore_ListEmployees_SortedByName(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, "RACHEAL GAIL", nil)
	seed(t, store, "ABIGAIL", nil)

	emps, err := store.ListEmployees(context.Background())
	require.NoError(t, err)
	require.Len(t, emps, 2)
	assert.Equal(t, generic.EmployeeName("ABIGAIL"), emps[0].Name)
	assert.Equal(t, generic.EmployeeName("RACHEAL GAIL"), emps[1].Name)
}

// =============================================================================
// BALANCES
// =============================================================================

func TestStore_CurrentBalance_UnknownIsZero(t *testing.T) {
	store := newTestStore(t)

	bal, err := store.CurrentBalance(context.Background(), "NOBODY")
	require.NoError(t, err)
	assert.True(t, bal.IsZero())
}

func TestStore_SetBalance_KeepsHalfDays(t *testing.T) {
	// GIVEN: An employee with a seeded balance
	store := newTestStore(t)
	ctx := context.Background()
	seed(t, store, "ABIGAIL", nil)

	// WHEN: Writing a negative half-day balance
	require.NoError(t, store.SetBalance(ctx, "ABIGAIL", days(10).Sub(days(13.5))))

	// THEN: Exact decimal result, negative allowed
	bal, err := store.CurrentBalance(ctx, "ABIGAIL")
	require.NoError(t, err)
	assert.Equal(t, "-3.5", bal.String())
}

func TestStore_CorruptDecimalColumns_AreErrors(t *testing.T) {
	// GIVEN: A store over a handle we can write raw rows through
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	store, err := sqlite.NewWithDB(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	seed(t, store, "ABIGAIL", ptr(days(16)))
	id, err := store.InsertRequest(ctx, pendingRequest("ABIGAIL", time.Now()))
	require.NoError(t, err)

	// WHEN: The balance column holds text that is not a number
	_, err = db.ExecContext(ctx, "UPDATE employees SET current_balance = 'garbage' WHERE name = 'ABIGAIL'")
	require.NoError(t, err)

	// THEN: Every read reports it instead of returning 0
	_, err = store.CurrentBalance(ctx, "ABIGAIL")
	assert.ErrorContains(t, err, `"garbage"`)
	_, err = store.GetEmployee(ctx, "ABIGAIL")
	assert.ErrorContains(t, err, `"garbage"`)
	_, err = store.ListEmployees(ctx)
	assert.Error(t, err)

	// WHEN: A request's days column is corrupt
	_, err = db.ExecContext(ctx, "UPDATE leave_requests SET days = 'n/a' WHERE id = ?", int64(id))
	require.NoError(t, err)

	// THEN: Reading the request fails too
	_, err = store.GetRequest(ctx, id)
	assert.ErrorContains(t, err, `"n/a"`)
	_, err = store.ListRequests(ctx, generic.RequestFilter{})
	assert.Error(t, err)
}

// =============================================================================
// REQUESTS
// =============================================================================

func TestStore_InsertAndGetRequest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	req := pendingRequest("ABIGAIL", time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC))
	req.HalfDay = true
	req.Days = days(2.5)
	req.Reason = "family"

	id, err := store.InsertRequest(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, generic.RequestID(1), id)

	got, err := store.GetRequest(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "2.5", got.Days.String())
	assert.True(t, got.HalfDay)
	assert.Equal(t, "family", got.Reason)
	assert.Equal(t, generic.RequestPending, got.Status)
	assert.Equal(t, "2026-03-10", got.StartDate.String())
	assert.True(t, req.AppliedOn.Equal(got.AppliedOn))

	missing, err := store.GetRequest(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_ListRequests_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	// Whole second vs fractional second must still sort by time.
	_, err := store.InsertRequest(ctx, pendingRequest("A", base))
	require.NoError(t, err)
	_, err = store.InsertRequest(ctx, pendingRequest("B", base.Add(500*time.Millisecond)))
	require.NoError(t, err)
	_, err = store.InsertRequest(ctx, pendingRequest("A", base.Add(-time.Hour)))
	require.NoError(t, err)

	all, err := store.ListRequests(ctx, generic.RequestFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, generic.RequestID(2), all[0].ID)
	assert.Equal(t, generic.RequestID(1), all[1].ID)
	assert.Equal(t, generic.RequestID(3), all[2].ID)

	name := generic.EmployeeName("A")
	mine, err := store.ListRequests(ctx, generic.RequestFilter{EmployeeName: &name})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, generic.RequestID(1), mine[0].ID)
}

func TestStore_ListRequests_SameTimestampUsesID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, err := store.InsertRequest(ctx, pendingRequest("A", at))
		require.NoError(t, err)
	}

	all, err := store.ListRequests(ctx, generic.RequestFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, generic.RequestID(3), all[0].ID)
	assert.Equal(t, generic.RequestID(1), all[2].ID)
}

func TestStore_CompareAndSetStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id, err := store.InsertRequest(ctx, pendingRequest("A", time.Now()))
	require.NoError(t, err)

	ok, err := store.CompareAndSetStatus(ctx, id, generic.RequestPending, generic.RequestApproved)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.CompareAndSetStatus(ctx, id, generic.RequestPending, generic.RequestRejected)
	require.NoError(t, err)
	assert.False(t, ok, "already approved")

	status := generic.RequestApproved
	approved, err := store.ListRequests(ctx, generic.RequestFilter{Status: &status})
	require.NoError(t, err)
	assert.Len(t, approved, 1)
}

func TestStore_CompareAndSetStatus_Concurrent(t *testing.T) {
	// GIVEN: One pending request
	store := newTestStore(t)
	ctx := context.Background()
	id, err := store.InsertRequest(ctx, pendingRequest("A", time.Now()))
	require.NoError(t, err)

	// WHEN: Ten goroutines race to approve it
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		won int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.CompareAndSetStatus(ctx, id, generic.RequestPending, generic.RequestApproved)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// THEN: Exactly one wins
	assert.Equal(t, 1, won)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestStore_WithTx_RollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seed(t, store, "A", nil)
	require.NoError(t, store.SetBalance(ctx, "A", days(5)))
	id, err := store.InsertRequest(ctx, pendingRequest("A", time.Now()))
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.WithTx(ctx, func(tx generic.Store) error {
		ok, err := tx.CompareAndSetStatus(ctx, id, generic.RequestPending, generic.RequestApproved)
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, tx.SetBalance(ctx, "A", days(2)))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	req, err := store.GetRequest(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, generic.RequestPending, req.Status)

	bal, err := store.CurrentBalance(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "5", bal.String())
}

func TestStore_WithTx_Commits(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seed(t, store, "A", nil)

	err := store.WithTx(ctx, func(tx generic.Store) error {
		if err := tx.SetBalance(ctx, "A", days(7)); err != nil {
			return err
		}
		bal, err := tx.CurrentBalance(ctx, "A")
		if err != nil {
			return err
		}
		assert.Equal(t, "7", bal.String(), "reads see the tx's own writes")
		return nil
	})
	require.NoError(t, err)

	bal, err := store.CurrentBalance(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "7", bal.String())
}

// =============================================================================
// DRIVER FAILURES (sqlmock)
// =============================================================================

func newMockStore(t *testing.T) (*sqlite.Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS employees").WillReturnResult(sqlmock.NewResult(0, 0))
	store, err := sqlite.NewWithDB(db)
	require.NoError(t, err)
	return store, mock
}

func TestStore_NewWithDB_MigrationFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("disk full"))

	_, err = sqlite.NewWithDB(db)
	assert.ErrorContains(t, err, "failed to migrate database")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_InsertRequest_DriverError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO leave_requests").WillReturnError(errors.New("locked"))

	_, err := store.InsertRequest(context.Background(), pendingRequest("A", time.Now()))
	assert.ErrorContains(t, err, "failed to insert leave request")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SetEntitlement_NoRowsIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE employees SET entitlement").
		WithArgs(sqlmock.AnyArg(), "GHOST").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.SetEntitlement(context.Background(), "GHOST", nil)
	assert.ErrorIs(t, err, generic.ErrEmployeeNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithTx_BeginFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin().WillReturnError(errors.New("busy"))

	called := false
	err := store.WithTx(context.Background(), func(generic.Store) error {
		called = true
		return nil
	})
	assert.ErrorContains(t, err, "failed to begin transaction")
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithTx_CASFailureRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE leave_requests SET status").
		WithArgs("Approved", int64(7), "Pending").
		WillReturnError(errors.New("io"))
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(tx generic.Store) error {
		_, err := tx.CompareAndSetStatus(context.Background(), 7, generic.RequestPending, generic.RequestApproved)
		return err
	})
	assert.ErrorContains(t, err, "failed to update status")
	assert.NoError(t, mock.ExpectationsWereMet())
}
