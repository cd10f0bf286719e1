/*
request.go - Leave request record and its status machine

REQUEST FLOW:
  ┌──────────────────────────────────────────────────────────┐
  │                                                          │
  │  Employee applies ──▶ Pending ──▶ Approved (counts)      │
  │                          │                               │
  │                          └──────▶ Rejected (no change)   │
  │                                                          │
  └──────────────────────────────────────────────────────────┘

  Approved and Rejected are terminal. A transition is a compare-and-set
  on the status column, so two admins racing on the same request cannot
  both succeed.
*/
package generic

import (
	"time"
)

type RequestStatus string

// Status values are stored verbatim.
const (
	RequestPending  RequestStatus = "Pending"
	RequestApproved RequestStatus = "Approved"
	RequestRejected RequestStatus = "Rejected"
)

// IsTerminal reports whether no further transition is allowed.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestApproved || s == RequestRejected
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to RequestStatus) bool {
	return from == RequestPending && to.IsTerminal()
}

// LeaveRequest is one entry of the leave ledger.
type LeaveRequest struct {
	ID           RequestID
	EmployeeName EmployeeName
	LeaveType    string
	StartDate    TimePoint
	EndDate      TimePoint
	Days         Amount
	HalfDay      bool
	Status       RequestStatus
	Reason       string
	AppliedOn    time.Time
}

// RequestFilter narrows ListRequests. Zero value lists everything.
type RequestFilter struct {
	EmployeeName *EmployeeName
	Status       *RequestStatus
}
