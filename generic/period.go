package generic

// =============================================================================
// PERIOD - Date range used for balance years and accrual windows
// =============================================================================

// Period is an inclusive date range [Start, End].
//
// Examples:
//   - Balance year 2026: Jan 1 - Dec 31
//   - Accrual window to date: Jan 1 - end of the cursor month
type Period struct {
	Start TimePoint
	End   TimePoint
}

// YearPeriod returns Jan 1 - Dec 31 of year.
func YearPeriod(year int) Period {
	return Period{Start: StartOfYear(year), End: EndOfYear(year)}
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Valid reports whether End does not precede Start.
func (p Period) Valid() bool {
	return !p.End.Before(p.Start)
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
