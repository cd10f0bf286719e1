/*
Package factory provides YAML to Go roster conversion.

PURPOSE:
  Converts the organisation roster (who works here, since when, their cap
  and their month-by-month accrual pattern) into a timeoff.Roster. The
  roster is configuration: changing staff or patterns is a file edit, not
  a code change.

YAML SCHEMA:
  employees:
    - name: RACHEAL GAIL
      role: Staff
      join_date: 2023-07-01
      entitlement: 14          # omit for unbounded
      pattern:
        default: 1.5           # every month
        months:
          "1-8": 1             # inclusive range override
          "12": 2              # single month override

  An employee without a pattern accrues timeoff.DefaultMonthlyDays a month.

VALIDATION:
  - name and join_date are required, join_date is YYYY-MM-DD
  - names are unique
  - month keys are 1..12, ranges ascending, no month listed twice
  - amounts are non-negative decimals

USAGE:
  f := factory.NewRosterFactory()
  roster, err := f.LoadFile("roster.yaml")
  // or the embedded organisation roster
  roster, err := f.Default()

SEE ALSO:
  - timeoff/roster.go: Roster and Pattern
  - roster.yaml: Embedded default roster
*/
package factory

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/warp/leave-tracker/generic"
	"github.com/warp/leave-tracker/timeoff"
)

//go:embed roster.yaml
var defaultRosterYAML []byte

// =============================================================================
// YAML SCHEMA TYPES
// =============================================================================

// RosterYAML is the document root.
type RosterYAML struct {
	Employees []EmployeeYAML `yaml:"employees"`
}

// EmployeeYAML is one roster entry.
type EmployeeYAML struct {
	Name        string       `yaml:"name"`
	Role        string       `yaml:"role"`
	JoinDate    string       `yaml:"join_date"`
	Entitlement *DaysYAML    `yaml:"entitlement,omitempty"`
	Pattern     *PatternYAML `yaml:"pattern,omitempty"`
}

// PatternYAML is a default amount plus per-month overrides.
type PatternYAML struct {
	Default *DaysYAML           `yaml:"default,omitempty"`
	Months  map[string]DaysYAML `yaml:"months,omitempty"`
}

// DaysYAML decodes a scalar straight into a decimal so "1.5" stays exact.
type DaysYAML struct {
	generic.Amount
}

func (d *DaysYAML) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number of days", node.Line)
	}
	amount, err := generic.ParseDays(strings.TrimSpace(node.Value))
	if err != nil {
		return fmt.Errorf("line %d: %q is not a number of days", node.Line, node.Value)
	}
	if amount.IsNegative() {
		return fmt.Errorf("line %d: negative days %s", node.Line, node.Value)
	}
	d.Amount = amount
	return nil
}

func (d DaysYAML) MarshalYAML() (any, error) {
	return d.Amount.Value.InexactFloat64(), nil
}

// =============================================================================
// ROSTER FACTORY
// =============================================================================

// RosterFactory converts YAML rosters to timeoff.Roster.
type RosterFactory struct{}

// NewRosterFactory creates a new roster factory.
func NewRosterFactory() *RosterFactory {
	return &RosterFactory{}
}

// Default parses the embedded organisation roster.
func (f *RosterFactory) Default() (*timeoff.Roster, error) {
	return f.Parse(defaultRosterYAML)
}

// LoadFile parses a roster from disk.
func (f *RosterFactory) LoadFile(path string) (*timeoff.Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}
	return f.Parse(data)
}

// Parse parses a YAML document into a Roster.
func (f *RosterFactory) Parse(data []byte) (*timeoff.Roster, error) {
	var ry RosterYAML
	if err := yaml.Unmarshal(data, &ry); err != nil {
		return nil, fmt.Errorf("failed to parse roster YAML: %w", err)
	}
	return f.FromYAML(ry)
}

// FromYAML validates and converts a decoded roster.
func (f *RosterFactory) FromYAML(ry RosterYAML) (*timeoff.Roster, error) {
	seen := make(map[string]bool, len(ry.Employees))
	entries := make([]timeoff.RosterEntry, 0, len(ry.Employees))

	for i, ey := range ry.Employees {
		name := strings.TrimSpace(ey.Name)
		if name == "" {
			return nil, fmt.Errorf("employee %d: name is required", i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("employee %q: duplicate name", name)
		}
		seen[name] = true

		joinDate, err := generic.ParseDate(strings.TrimSpace(ey.JoinDate))
		if err != nil {
			return nil, fmt.Errorf("employee %q: invalid join_date %q", name, ey.JoinDate)
		}

		entry := timeoff.RosterEntry{
			Name:     generic.EmployeeName(name),
			Role:     ey.Role,
			JoinDate: joinDate,
		}
		if ey.Entitlement != nil {
			limit := ey.Entitlement.Amount
			entry.Entitlement = &limit
		}
		if ey.Pattern != nil {
			entry.Pattern, err = parsePattern(*ey.Pattern)
			if err != nil {
				return nil, fmt.Errorf("employee %q: %w", name, err)
			}
		}
		entries = append(entries, entry)
	}

	return timeoff.NewRoster(entries...), nil
}

// ToYAML converts a roster back to its YAML form. Patterns are written as
// explicit months.
func (f *RosterFactory) ToYAML(roster *timeoff.Roster) RosterYAML {
	var ry RosterYAML
	for _, e := range roster.Entries() {
		ey := EmployeeYAML{
			Name:     string(e.Name),
			Role:     e.Role,
			JoinDate: e.JoinDate.String(),
		}
		if e.Entitlement != nil {
			ey.Entitlement = &DaysYAML{Amount: *e.Entitlement}
		}
		if e.Pattern != nil {
			py := &PatternYAML{Months: make(map[string]DaysYAML, len(e.Pattern))}
			for m, amount := range e.Pattern {
				py.Months[strconv.Itoa(int(m))] = DaysYAML{Amount: amount}
			}
			ey.Pattern = py
		}
		ry.Employees = append(ry.Employees, ey)
	}
	return ry
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parsePattern(py PatternYAML) (timeoff.Pattern, error) {
	pattern := make(timeoff.Pattern, 12)
	if py.Default != nil {
		for m := time.January; m <= time.December; m++ {
			pattern[m] = py.Default.Amount
		}
	}

	overridden := make(map[time.Month]bool, len(py.Months))
	for key, amount := range py.Months {
		from, to, err := parseMonthKey(key)
		if err != nil {
			return nil, err
		}
		for m := from; m <= to; m++ {
			if overridden[m] {
				return nil, fmt.Errorf("month %d listed twice", m)
			}
			overridden[m] = true
			pattern[m] = amount.Amount
		}
	}
	return pattern, nil
}

// parseMonthKey accepts "5" or "1-4".
func parseMonthKey(key string) (time.Month, time.Month, error) {
	lo, hi, isRange := strings.Cut(strings.TrimSpace(key), "-")
	from, err := parseMonth(lo)
	if err != nil {
		return 0, 0, err
	}
	if !isRange {
		return from, from, nil
	}
	to, err := parseMonth(hi)
	if err != nil {
		return 0, 0, err
	}
	if to < from {
		return 0, 0, fmt.Errorf("month range %q runs backwards", key)
	}
	return from, to, nil
}

func parseMonth(s string) (time.Month, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > 12 {
		return 0, fmt.Errorf("invalid month %q", s)
	}
	return time.Month(n), nil
}
