/*
ledger.go - Leave ledger service

PURPOSE:
  Orchestrates the life of a leave request and answers balance queries.
  This is the only component that mutates request status.

OPERATIONS:
  Apply:          Record a Pending request (warns, never refuses, on shortfall)
  Approve:        Pending -> Approved, refresh cached balance, notify
  Reject:         Pending -> Rejected, no balance change, notify
  ListFor/ListAll Newest first
  Balance:        Derived: accrued(asOf) - approved days from Jan 1 on
  Recompute:      Write the derived balance into every cached balance
  SetEntitlement: Overwrite the cap; unparseable input clears it

INVARIANTS:
  1. Status changes are compare-and-set on Pending. Approving twice
     counts the days once; the second call gets ErrRequestNotPending.
  2. Approved and Rejected are terminal.
  3. Reject never touches a balance.
  4. The cached balance is only ever written from the derived value
     (Approve, Recompute, SetEntitlement), so it always equals Balance
     for the day it was written.

NOTIFICATIONS:
  Sent after the store transaction commits. A failing notifier is the
  notifier's problem: nothing here waits on or rolls back for delivery.

EXAMPLE:
  ledger := timeoff.NewLedger(store, roster, timeoff.LedgerConfig{SystemStartYear: 2026})

  res, err := ledger.Apply(ctx, timeoff.ApplyInput{Employee: "ABIGAIL", ...})
  if res.Warning != "" { ... }

  approved, err := ledger.Approve(ctx, res.Request.ID)
  if generic.IsConflict(err) { ... already decided ... }
*/
package timeoff

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/warp/leave-tracker/generic"
)

// Notifier receives ledger events. Implementations must not block for long
// and must swallow their own delivery errors.
type Notifier interface {
	LeaveApplied(ctx context.Context, req generic.LeaveRequest)
	LeaveApproved(ctx context.Context, req generic.LeaveRequest)
	LeaveRejected(ctx context.Context, req generic.LeaveRequest)
}

type nopNotifier struct{}

func (nopNotifier) LeaveApplied(context.Context, generic.LeaveRequest)  {}
func (nopNotifier) LeaveApproved(context.Context, generic.LeaveRequest) {}
func (nopNotifier) LeaveRejected(context.Context, generic.LeaveRequest) {}

// LedgerConfig holds the organisation-wide accrual settings and collaborators.
type LedgerConfig struct {
	// SystemStartYear: no accrual for earlier years.
	SystemStartYear int
	AccrualMode     generic.AccrualMode

	Notifier Notifier
	Logger   *zap.Logger
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Ledger is the leave ledger service.
type Ledger struct {
	store    generic.TxStore
	roster   *Roster
	notifier Notifier
	logger   *zap.Logger
	clock    func() time.Time

	systemStartYear int
	mode            generic.AccrualMode
}

func NewLedger(store generic.TxStore, roster *Roster, cfg LedgerConfig) *Ledger {
	l := &Ledger{
		store:           store,
		roster:          roster,
		notifier:        cfg.Notifier,
		clock:           cfg.Clock,
		systemStartYear: cfg.SystemStartYear,
		mode:            cfg.AccrualMode,
	}
	if l.notifier == nil {
		l.notifier = nopNotifier{}
	}
	if l.clock == nil {
		l.clock = time.Now
	}
	if l.mode == "" {
		l.mode = generic.AccrueToDate
	}
	if cfg.Logger != nil {
		l.logger = cfg.Logger.Named("timeoff.ledger")
	} else {
		l.logger = zap.L().Named("timeoff.ledger")
	}
	return l
}

// Today is the ledger clock's current date.
func (l *Ledger) Today() generic.TimePoint {
	return generic.DateOf(l.clock())
}

// =============================================================================
// SEEDING
// =============================================================================

// SeedRoster inserts roster employees that are not in the store yet.
// Existing records, including edited entitlements, are left alone.
func (l *Ledger) SeedRoster(ctx context.Context) (int, error) {
	inserted := 0
	for _, emp := range l.roster.Employees() {
		ok, err := l.store.SeedEmployee(ctx, emp)
		if err != nil {
			return inserted, fmt.Errorf("seed %s: %w", emp.Name, err)
		}
		if ok {
			inserted++
		}
	}
	l.logger.Info("roster seeded", zap.Int("inserted", inserted), zap.Int("roster_size", len(l.roster.Entries())))
	return inserted, nil
}

// =============================================================================
// APPLY
// =============================================================================

// Apply records a new pending request.
func (l *Ledger) Apply(ctx context.Context, in ApplyInput) (ApplyResult, error) {
	emp, err := l.store.GetEmployee(ctx, in.Employee)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("get employee: %w", err)
	}
	if emp == nil {
		return ApplyResult{}, fmt.Errorf("%w: %s", generic.ErrEmployeeNotFound, in.Employee)
	}

	days := DayCount(in.Start, in.End, in.HalfDay)
	if period := (generic.Period{Start: in.Start, End: in.End}); !period.Valid() {
		l.logger.Warn("end date precedes start date, recording 0 days",
			zap.String("employee", string(in.Employee)),
			zap.Stringer("start", in.Start),
			zap.Stringer("end", in.End),
		)
	}

	balance, err := l.balanceIn(ctx, l.store, *emp, l.Today())
	if err != nil {
		return ApplyResult{}, err
	}

	req := generic.LeaveRequest{
		EmployeeName: in.Employee,
		LeaveType:    generic.NormalizeLeaveType(in.LeaveType),
		StartDate:    in.Start,
		EndDate:      in.End,
		Days:         days,
		HalfDay:      in.HalfDay,
		Status:       generic.RequestPending,
		Reason:       strings.TrimSpace(in.Reason),
		AppliedOn:    l.clock().UTC(),
	}

	id, err := l.store.InsertRequest(ctx, req)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("insert request: %w", err)
	}
	req.ID = id

	res := ApplyResult{Request: req, Balance: balance}
	if !balance.CanCover(days) {
		res.Warning = fmt.Sprintf("Applying %s days but only %s available.",
			days.Value.String(), balance.Available.Value.StringFixed(2))
	}

	l.logger.Info("leave applied",
		zap.Int64("request_id", int64(id)),
		zap.String("employee", string(req.EmployeeName)),
		zap.String("leave_type", req.LeaveType),
		zap.String("days", days.String()),
		zap.Bool("insufficient_balance", res.Warning != ""),
	)
	l.notifier.LeaveApplied(ctx, req)
	return res, nil
}

// =============================================================================
// APPROVE / REJECT
// =============================================================================

// Approve moves a pending request to Approved and rewrites the employee's
// cached balance in the same transaction.
func (l *Ledger) Approve(ctx context.Context, id generic.RequestID) (generic.LeaveRequest, error) {
	asOf := l.Today()
	req, err := l.transition(ctx, id, generic.RequestApproved, func(tx generic.Store, req generic.LeaveRequest) error {
		emp, err := tx.GetEmployee(ctx, req.EmployeeName)
		if err != nil {
			return fmt.Errorf("get employee: %w", err)
		}
		if emp == nil {
			return fmt.Errorf("%w: %s", generic.ErrEmployeeNotFound, req.EmployeeName)
		}
		return l.refreshIn(ctx, tx, *emp, asOf)
	})
	if err != nil {
		return generic.LeaveRequest{}, err
	}

	l.logger.Info("leave approved",
		zap.Int64("request_id", int64(id)),
		zap.String("employee", string(req.EmployeeName)),
		zap.String("days", req.Days.String()),
	)
	l.notifier.LeaveApproved(ctx, req)
	return req, nil
}

// Reject moves a pending request to Rejected. Balances are not touched.
func (l *Ledger) Reject(ctx context.Context, id generic.RequestID) (generic.LeaveRequest, error) {
	req, err := l.transition(ctx, id, generic.RequestRejected, nil)
	if err != nil {
		return generic.LeaveRequest{}, err
	}

	l.logger.Info("leave rejected",
		zap.Int64("request_id", int64(id)),
		zap.String("employee", string(req.EmployeeName)),
	)
	l.notifier.LeaveRejected(ctx, req)
	return req, nil
}

func (l *Ledger) transition(
	ctx context.Context,
	id generic.RequestID,
	to generic.RequestStatus,
	effect func(tx generic.Store, req generic.LeaveRequest) error,
) (generic.LeaveRequest, error) {
	var result generic.LeaveRequest
	if !generic.CanTransition(generic.RequestPending, to) {
		return result, fmt.Errorf("invalid target status %q", to)
	}

	err := l.store.WithTx(ctx, func(tx generic.Store) error {
		req, err := tx.GetRequest(ctx, id)
		if err != nil {
			return fmt.Errorf("get request: %w", err)
		}
		if req == nil {
			return fmt.Errorf("%w: %d", generic.ErrRequestNotFound, id)
		}

		ok, err := tx.CompareAndSetStatus(ctx, id, generic.RequestPending, to)
		if err != nil {
			return fmt.Errorf("set status: %w", err)
		}
		if !ok {
			return &generic.TransitionError{RequestID: id, From: string(req.Status), To: string(to)}
		}

		req.Status = to
		if effect != nil {
			if err := effect(tx, *req); err != nil {
				return err
			}
		}
		result = *req
		return nil
	})
	if err != nil && generic.IsConflict(err) {
		l.logger.Warn("refused status change", zap.Int64("request_id", int64(id)), zap.Error(err))
	}
	return result, err
}

// =============================================================================
// QUERIES
// =============================================================================

// ListFor returns one employee's requests, newest first.
func (l *Ledger) ListFor(ctx context.Context, name generic.EmployeeName) ([]generic.LeaveRequest, error) {
	return l.store.ListRequests(ctx, generic.RequestFilter{EmployeeName: &name})
}

// ListAll returns every request, newest first.
func (l *Ledger) ListAll(ctx context.Context) ([]generic.LeaveRequest, error) {
	return l.store.ListRequests(ctx, generic.RequestFilter{})
}

// ListPending returns requests awaiting a decision, newest first.
func (l *Ledger) ListPending(ctx context.Context) ([]generic.LeaveRequest, error) {
	pending := generic.RequestPending
	return l.store.ListRequests(ctx, generic.RequestFilter{Status: &pending})
}

// Balance returns the derived balance. Unknown employees get a zero
// balance and no error.
func (l *Ledger) Balance(ctx context.Context, name generic.EmployeeName, asOf generic.TimePoint) (generic.Balance, error) {
	emp, err := l.store.GetEmployee(ctx, name)
	if err != nil {
		return generic.Balance{}, fmt.Errorf("get employee: %w", err)
	}
	if emp == nil {
		return zeroBalance(name, asOf), nil
	}
	return l.balanceIn(ctx, l.store, *emp, asOf)
}

// Employees lists the roster with derived balances.
func (l *Ledger) Employees(ctx context.Context, asOf generic.TimePoint) ([]EmployeeSummary, error) {
	emps, err := l.store.ListEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}

	summaries := make([]EmployeeSummary, 0, len(emps))
	for _, emp := range emps {
		bal, err := l.balanceIn(ctx, l.store, emp, asOf)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, EmployeeSummary{Employee: emp, Balance: bal})
	}
	return summaries, nil
}

// Accrued returns what emp has accrued as of asOf under the ledger's mode.
func (l *Ledger) Accrued(emp generic.Employee, asOf generic.TimePoint) generic.Amount {
	return CalculateAccrual(AccrualInput{
		JoinDate:        emp.JoinDate,
		Entitlement:     emp.Entitlement,
		Pattern:         l.roster.PatternFor(emp.Name),
		SystemStartYear: l.systemStartYear,
		Year:            asOf.Year(),
		CursorMonth:     CursorFor(asOf, l.mode),
	})
}

func (l *Ledger) balanceIn(ctx context.Context, s generic.Store, emp generic.Employee, asOf generic.TimePoint) (generic.Balance, error) {
	requests, err := s.ListRequests(ctx, generic.RequestFilter{EmployeeName: &emp.Name})
	if err != nil {
		return generic.Balance{}, fmt.Errorf("list requests: %w", err)
	}
	return generic.ComputeBalance(emp.Name, asOf, l.Accrued(emp, asOf), requests), nil
}

func zeroBalance(name generic.EmployeeName, asOf generic.TimePoint) generic.Balance {
	return generic.Balance{
		EmployeeName: name,
		AsOf:         asOf,
		Accrued:      generic.ZeroDays(),
		Consumed:     generic.ZeroDays(),
		Pending:      generic.ZeroDays(),
		Available:    generic.ZeroDays(),
	}
}

// =============================================================================
// RECOMPUTE
// =============================================================================

// Recompute writes every employee's derived balance into the balance store.
func (l *Ledger) Recompute(ctx context.Context, asOf generic.TimePoint) (int, error) {
	updated := 0
	err := l.store.WithTx(ctx, func(tx generic.Store) error {
		emps, err := tx.ListEmployees(ctx)
		if err != nil {
			return fmt.Errorf("list employees: %w", err)
		}
		for _, emp := range emps {
			if err := l.refreshIn(ctx, tx, emp, asOf); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	l.logger.Info("balances recomputed", zap.Int("employees", updated), zap.Stringer("as_of", asOf))
	return updated, nil
}

func (l *Ledger) refreshIn(ctx context.Context, tx generic.Store, emp generic.Employee, asOf generic.TimePoint) error {
	bal, err := l.balanceIn(ctx, tx, emp, asOf)
	if err != nil {
		return err
	}
	if err := tx.SetBalance(ctx, emp.Name, bal.Available); err != nil {
		return fmt.Errorf("set balance %s: %w", emp.Name, err)
	}
	return nil
}

// =============================================================================
// ENTITLEMENT ADMINISTRATION
// =============================================================================

// ParseEntitlement turns admin input into a cap. Anything that is not a
// number, including the empty string, means unbounded.
func ParseEntitlement(raw string) *generic.Amount {
	amount, err := generic.ParseDays(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	return &amount
}

// SetEntitlement overwrites the employee's cap and refreshes the cached
// balance. It returns the cap that was stored (nil = unbounded).
func (l *Ledger) SetEntitlement(ctx context.Context, name generic.EmployeeName, raw string) (*generic.Amount, error) {
	entitlement := ParseEntitlement(raw)
	asOf := l.Today()

	err := l.store.WithTx(ctx, func(tx generic.Store) error {
		if err := tx.SetEntitlement(ctx, name, entitlement); err != nil {
			return fmt.Errorf("set entitlement %s: %w", name, err)
		}
		emp, err := tx.GetEmployee(ctx, name)
		if err != nil {
			return fmt.Errorf("get employee: %w", err)
		}
		if emp == nil {
			return fmt.Errorf("%w: %s", generic.ErrEmployeeNotFound, name)
		}
		return l.refreshIn(ctx, tx, *emp, asOf)
	})
	if err != nil {
		return nil, err
	}

	fields := []zap.Field{zap.String("employee", string(name))}
	if entitlement == nil {
		fields = append(fields, zap.String("entitlement", "unbounded"))
	} else {
		fields = append(fields, zap.String("entitlement", entitlement.String()))
	}
	l.logger.Info("entitlement updated", fields...)
	return entitlement, nil
}
