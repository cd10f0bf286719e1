/*
Package generic provides the domain-agnostic building blocks of the leave tracker.

PURPOSE:
  Everything that is not specific to "leave" lives here: day amounts with
  exact decimal arithmetic, calendar dates, sentinel errors and the storage
  contracts the ledger is written against. The timeoff package layers the
  leave rules (accrual, day counting, approval) on top.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity of leave days (fractional, e.g. 0.5 for a half day)
  - EmployeeName: The unique identifier of an employee
  - RequestID: Identifier of a leave request in the ledger

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal so 1.5 * 12 is exactly 18
  2. Type Safety: Names and request IDs are distinct types
  3. Rounding: Balances are reported with 2 decimal places

USAGE:
  accrued := generic.NewAmount(1.5, generic.UnitDays).Mul(decimal.NewFromInt(12))
  accrued.Round2()   // 18.00 days

SEE ALSO:
  - time.go: Calendar dates
  - store.go: Persistence contracts
  - errors.go: Sentinel errors
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity of leave
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitDays Unit = "days"
)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewAmountFromInt(value int, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value)), Unit: unit}
}

// Days is shorthand for an amount in days.
func Days(d decimal.Decimal) Amount { return Amount{Value: d, Unit: UnitDays} }

// ZeroDays is an empty balance.
func ZeroDays() Amount { return Amount{Value: decimal.Zero, Unit: UnitDays} }

// ParseDays parses a decimal string such as "16" or "1.5".
func ParseDays(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, err
	}
	return Days(d), nil
}

func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s), Unit: a.Unit} }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) GreaterThan(b Amount) bool    { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool       { return a.Value.LessThan(b.Value) }
func (a Amount) Equal(b Amount) bool          { return a.Value.Equal(b.Value) }

func (a Amount) Min(b Amount) Amount {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Round2 rounds to two decimal places (half away from zero).
func (a Amount) Round2() Amount { return Amount{Value: a.Value.Round(2), Unit: a.Unit} }

// Float64 is used at the JSON boundary only.
func (a Amount) Float64() float64 { return a.Value.InexactFloat64() }

func (a Amount) String() string { return a.Value.String() }

// =============================================================================
// IDENTIFIERS
// =============================================================================

// EmployeeName identifies an employee. Names are unique within the roster.
type EmployeeName string

type RequestID int64
