/*
ledger.go - Folds over the leave ledger

PURPOSE:
  The leave requests are the ledger. Approved entries are the only thing
  that reduces a balance; this file holds the pure helpers that read the
  ledger: totals by status and ordering for display.
*/
package generic

import "sort"

// SumDays adds the days of requests with the given status whose start date
// is on or after from.
func SumDays(requests []LeaveRequest, status RequestStatus, from TimePoint) Amount {
	total := ZeroDays()
	for _, r := range requests {
		if r.Status != status || r.StartDate.Before(from) {
			continue
		}
		total = total.Add(r.Days)
	}
	return total
}

// SortNewestFirst orders requests by application time, most recent first.
// Requests applied in the same instant are ordered by descending ID.
func SortNewestFirst(requests []LeaveRequest) {
	sort.SliceStable(requests, func(i, j int) bool {
		a, b := requests[i], requests[j]
		if !a.AppliedOn.Equal(b.AppliedOn) {
			return a.AppliedOn.After(b.AppliedOn)
		}
		return a.ID > b.ID
	})
}
