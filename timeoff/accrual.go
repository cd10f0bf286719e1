/*
accrual.go - Monthly pattern accrual

PURPOSE:
  Implements generic.AccrualSchedule for the office's leave scheme:
  every month of the year carries its own accrual amount, and the
  yearly total is capped by the employee's entitlement.

RULES:
  For a target year and a cursor month:
  1. Walk months January..cursor (January..December in full-year mode)
  2. No accrual for months that start before the join month
  3. No accrual at all for years before the system start year
  4. Sum the pattern amounts (0 for months not in the pattern)
  5. Clamp to the entitlement when one is configured
  6. Round to 2 decimal places

EXAMPLE:
  Joined 2023-07-01, pattern {1..8: 1, 9..12: 1.5}, entitlement 12,
  system start year 2020:

    2023 to June:      0     (all months before the join month)
    2023 full year:    8     (Jul, Aug = 2; Sep..Dec = 6)
    2026 full year:   12     (14 clamped to 12)

  No error conditions: dates come from the roster and the store, both of
  which are validated on the way in.

SEE ALSO:
  - generic/accrual.go: AccrualSchedule interface
  - roster.go: Pattern and its default
*/
package timeoff

import (
	"time"

	"github.com/warp/leave-tracker/generic"
)

// =============================================================================
// MONTHLY PATTERN ACCRUAL
// =============================================================================

// MonthlyPatternAccrual implements generic.AccrualSchedule with one event
// on the first day of every accruing month.
type MonthlyPatternAccrual struct {
	JoinDate        generic.TimePoint
	Pattern         Pattern
	SystemStartYear int
}

var _ generic.AccrualSchedule = (*MonthlyPatternAccrual)(nil)

func (ma *MonthlyPatternAccrual) GenerateAccruals(from, to generic.TimePoint) []generic.AccrualEvent {
	var events []generic.AccrualEvent

	joinMonth := ma.JoinDate.FirstOfMonth()
	current := from.FirstOfMonth()
	end := to.FirstOfMonth()

	for current.BeforeOrEqual(end) {
		if ma.accrues(current, from, to, joinMonth) {
			amount := ma.Pattern.For(current.Month())
			if !amount.IsZero() {
				events = append(events, generic.AccrualEvent{
					At:     current,
					Amount: amount,
					Reason: "monthly accrual",
				})
			}
		}
		current = current.AddMonths(1)
	}
	return events
}

func (ma *MonthlyPatternAccrual) accrues(month, from, to, joinMonth generic.TimePoint) bool {
	if month.Before(from) || month.After(to) {
		return false
	}
	if month.Before(joinMonth) {
		return false
	}
	return month.Year() >= ma.SystemStartYear
}

// =============================================================================
// ACCRUAL CALCULATOR
// =============================================================================

// AccrualInput carries everything the calculator needs.
type AccrualInput struct {
	JoinDate        generic.TimePoint
	Entitlement     *generic.Amount // nil = unbounded
	Pattern         Pattern
	SystemStartYear int
	Year            int
	CursorMonth     time.Month
}

// CalculateAccrual returns the cumulative balance accrued in Year through
// CursorMonth, clamped to the entitlement and rounded to 2 decimals.
func CalculateAccrual(in AccrualInput) generic.Amount {
	if in.CursorMonth < time.January {
		return generic.ZeroDays()
	}
	cursor := in.CursorMonth
	if cursor > time.December {
		cursor = time.December
	}

	schedule := &MonthlyPatternAccrual{
		JoinDate:        in.JoinDate,
		Pattern:         in.Pattern,
		SystemStartYear: in.SystemStartYear,
	}
	from := generic.StartOfYear(in.Year)
	to := generic.EndOfMonth(in.Year, cursor)

	total := generic.SumAccruals(schedule.GenerateAccruals(from, to))
	if in.Entitlement != nil {
		total = total.Min(*in.Entitlement)
	}
	return total.Round2()
}

// CursorFor picks the last accruing month for a balance as of asOf.
func CursorFor(asOf generic.TimePoint, mode generic.AccrualMode) time.Month {
	if mode == generic.AccrueFullYear {
		return time.December
	}
	return asOf.Month()
}
