package timeoff

import (
	"github.com/shopspring/decimal"
	"github.com/warp/leave-tracker/generic"
)

var halfDay = decimal.NewFromFloat(0.5)

// DayCount returns the inclusive number of days from start to end, less
// half a day when halfDay is set. An end date before the start date yields
// 0 days rather than an error; the half-day flag is ignored in that case.
//
//	2026-03-10 .. 2026-03-12        -> 3
//	2026-03-10 .. 2026-03-10 (half) -> 0.5
//	2026-03-12 .. 2026-03-10        -> 0
func DayCount(start, end generic.TimePoint, halfDayFlag bool) generic.Amount {
	if end.Before(start) {
		return generic.ZeroDays()
	}

	days := generic.NewAmountFromInt(generic.DaysBetween(start, end)+1, generic.UnitDays)
	if halfDayFlag {
		days = days.Sub(generic.Days(halfDay))
	}
	return days
}
