/*
balance.go - Derived balance view

KEY INSIGHT:
  Balance is never stored as the source of truth. It is computed from the
  accrual for the balance year and the approved entries of the ledger:

    Available = Accrued(asOf) - Σ Approved days (start date >= Jan 1 of asOf's year)

  Leave already approved for a later year is spent from today's balance.
  Approvals that started in an earlier year are settled and never count.
  Because it is a pure function of configuration and ledger, the cached
  balance written after an approval and the one written by a recompute
  are the same value.

BALANCE COMPONENTS:
  Accrued:   Pattern sum for months elapsed, clamped to the entitlement
  Consumed:  Approved leave starting in the balance year or later
  Pending:   Submitted but not yet decided, same window (informational only)
  Available: Accrued - Consumed

SEE ALSO:
  - ledger.go: Folds over requests
  - timeoff/accrual.go: Produces Accrued
*/
package generic

// Balance is the derived leave position of one employee.
type Balance struct {
	EmployeeName EmployeeName
	AsOf         TimePoint
	Accrued      Amount
	Consumed     Amount
	Pending      Amount
	Available    Amount
}

// ComputeBalance builds the balance for the year containing asOf.
func ComputeBalance(name EmployeeName, asOf TimePoint, accrued Amount, requests []LeaveRequest) Balance {
	from := StartOfYear(asOf.Year())
	consumed := SumDays(requests, RequestApproved, from)
	pending := SumDays(requests, RequestPending, from)

	return Balance{
		EmployeeName: name,
		AsOf:         asOf,
		Accrued:      accrued,
		Consumed:     consumed,
		Pending:      pending,
		Available:    accrued.Sub(consumed).Round2(),
	}
}

// CanCover reports whether days fit into the available balance.
func (b Balance) CanCover(days Amount) bool {
	return !days.GreaterThan(b.Available)
}
