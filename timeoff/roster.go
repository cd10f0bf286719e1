package timeoff

import (
	"time"

	"github.com/warp/leave-tracker/generic"
)

// =============================================================================
// ACCRUAL PATTERN
// =============================================================================

// Pattern maps a month to the days accrued in it. Missing months accrue 0.
type Pattern map[time.Month]generic.Amount

// DefaultMonthlyDays applies to employees without a configured pattern.
const DefaultMonthlyDays = 2

// UniformPattern accrues the same amount every month.
func UniformPattern(days float64) Pattern {
	p := make(Pattern, 12)
	for m := time.January; m <= time.December; m++ {
		p[m] = generic.NewAmount(days, generic.UnitDays)
	}
	return p
}

// DefaultPattern is 2 days for every month.
func DefaultPattern() Pattern {
	return UniformPattern(DefaultMonthlyDays)
}

// For returns the amount for month m, zero if unlisted.
func (p Pattern) For(m time.Month) generic.Amount {
	if a, ok := p[m]; ok {
		return a
	}
	return generic.ZeroDays()
}

// YearTotal sums all twelve months.
func (p Pattern) YearTotal() generic.Amount {
	total := generic.ZeroDays()
	for m := time.January; m <= time.December; m++ {
		total = total.Add(p.For(m))
	}
	return total
}

// =============================================================================
// ROSTER - Static organisation configuration
// =============================================================================

// RosterEntry describes one employee as configured.
type RosterEntry struct {
	Name        generic.EmployeeName
	Role        string
	JoinDate    generic.TimePoint
	Entitlement *generic.Amount
	Pattern     Pattern
}

// Roster is loaded once at startup. It seeds the employee store and
// supplies accrual patterns; the store owns entitlements after seeding.
type Roster struct {
	entries []RosterEntry
	byName  map[generic.EmployeeName]RosterEntry
}

func NewRoster(entries ...RosterEntry) *Roster {
	r := &Roster{byName: make(map[generic.EmployeeName]RosterEntry, len(entries))}
	for _, e := range entries {
		if _, dup := r.byName[e.Name]; dup {
			continue
		}
		r.entries = append(r.entries, e)
		r.byName[e.Name] = e
	}
	return r
}

// Entries returns the roster in configuration order.
func (r *Roster) Entries() []RosterEntry {
	if r == nil {
		return nil
	}
	out := make([]RosterEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Lookup finds an entry by name.
func (r *Roster) Lookup(name generic.EmployeeName) (RosterEntry, bool) {
	if r == nil {
		return RosterEntry{}, false
	}
	e, ok := r.byName[name]
	return e, ok
}

// PatternFor returns the configured pattern, or DefaultPattern.
func (r *Roster) PatternFor(name generic.EmployeeName) Pattern {
	if e, ok := r.Lookup(name); ok && e.Pattern != nil {
		return e.Pattern
	}
	return DefaultPattern()
}

// Employees converts the roster into seed records with a zero balance.
func (r *Roster) Employees() []generic.Employee {
	entries := r.Entries()
	emps := make([]generic.Employee, 0, len(entries))
	for _, e := range entries {
		emps = append(emps, generic.Employee{
			Name:           e.Name,
			Role:           e.Role,
			JoinDate:       e.JoinDate,
			Entitlement:    e.Entitlement,
			CurrentBalance: generic.ZeroDays(),
		})
	}
	return emps
}
