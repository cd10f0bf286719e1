// Package timeoff implements the leave rules of the tracker.
// It uses the generic building blocks with a monthly accrual pattern per
// employee, inclusive day counting and a pending/approved/rejected ledger.
package timeoff

import "github.com/warp/leave-tracker/generic"

// =============================================================================
// LEAVE TYPES
// =============================================================================

// Leave types offered on the application form.
const (
	LeaveAnnual        = "Annual"
	LeaveSick          = "Sick"
	LeaveEmergency     = "Emergency"
	LeaveUnpaid        = "Unpaid"
	LeaveCompassionate = "Compassionate"
	LeaveMaternity     = "Maternity"
	LeavePaternity     = "Paternity"
)

// Register all leave types with the generic registry
func init() {
	generic.RegisterLeaveType(LeaveAnnual)
	generic.RegisterLeaveType(LeaveSick)
	generic.RegisterLeaveType(LeaveEmergency)
	generic.RegisterLeaveType(LeaveUnpaid)
	generic.RegisterLeaveType(LeaveCompassionate)
	generic.RegisterLeaveType(LeaveMaternity)
	generic.RegisterLeaveType(LeavePaternity)
}

// ApplyInput is what an employee submits on the application form.
type ApplyInput struct {
	Employee  generic.EmployeeName
	LeaveType string
	Start     generic.TimePoint
	End       generic.TimePoint
	HalfDay   bool
	Reason    string
}

// ApplyResult is the recorded request plus the balance it was checked against.
type ApplyResult struct {
	Request generic.LeaveRequest
	Balance generic.Balance

	// Warning is set when the request exceeds the available balance.
	// The request is recorded as pending regardless.
	Warning string
}

// EmployeeSummary pairs a roster record with its derived balance.
type EmployeeSummary struct {
	Employee generic.Employee
	Balance  generic.Balance
}
