package generic

// =============================================================================
// ACCRUAL SCHEDULE - Interface for how leave accumulates
// =============================================================================

// AccrualSchedule generates accrual events for a time range.
// Implementations define the business logic (monthly pattern, flat rate, ...)
type AccrualSchedule interface {
	// GenerateAccruals returns accrual events in [from, to].
	GenerateAccruals(from, to TimePoint) []AccrualEvent
}

// AccrualEvent represents a single accrual occurrence.
type AccrualEvent struct {
	At     TimePoint
	Amount Amount
	Reason string
}

// SumAccruals adds up the amounts of events.
func SumAccruals(events []AccrualEvent) Amount {
	total := ZeroDays()
	for _, e := range events {
		total = total.Add(e.Amount)
	}
	return total
}

// AccrualMode selects how far into the year a balance accrues.
type AccrualMode string

const (
	// AccrueToDate accrues months 1 through the current month.
	AccrueToDate AccrualMode = "monthly"
	// AccrueFullYear accrues all twelve months up front.
	AccrueFullYear AccrualMode = "full_year"
)

// ParseAccrualMode maps a config string to a mode. Unknown values fall back
// to AccrueToDate.
func ParseAccrualMode(s string) AccrualMode {
	if AccrualMode(s) == AccrueFullYear {
		return AccrueFullYear
	}
	return AccrueToDate
}
