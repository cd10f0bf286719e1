/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupled from the
  generic and timeoff types. Day amounts leave the API as numbers rounded
  to 2 decimal places.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/leave-tracker/generic"
	"github.com/warp/leave-tracker/timeoff"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ApplyRequest is the leave application (JSON or form field names).
type ApplyRequest struct {
	Employee  string `json:"employee"`
	LeaveType string `json:"leave_type"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Half      bool   `json:"half"`
	Reason    string `json:"reason"`
}

// UpdateEntitlementRequest sets a new cap. Anything non-numeric clears it.
type UpdateEntitlementRequest struct {
	Name        string `json:"name"`
	Entitlement string `json:"entitlement"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// LeaveRequestDTO represents a leave request in API responses.
type LeaveRequestDTO struct {
	ID           int64   `json:"id"`
	EmployeeName string  `json:"employee_name"`
	LeaveType    string  `json:"leave_type"`
	StartDate    string  `json:"start_date"`
	EndDate      string  `json:"end_date"`
	Days         float64 `json:"days"`
	HalfDay      bool    `json:"half_day"`
	Status       string  `json:"status"`
	Reason       string  `json:"reason,omitempty"`
	AppliedOn    string  `json:"applied_on"`
}

// BalanceDTO is the derived balance.
type BalanceDTO struct {
	AsOf      string  `json:"as_of"`
	Accrued   float64 `json:"accrued"`
	Consumed  float64 `json:"consumed"`
	Pending   float64 `json:"pending"`
	Available float64 `json:"available"`
}

// EmployeeDTO is a roster record with its balances.
type EmployeeDTO struct {
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	JoinDate    string   `json:"join_date"`
	Entitlement *float64 `json:"entitlement"` // null = unbounded
	// CurrentBalance is the cached balance as last written by the ledger.
	CurrentBalance float64    `json:"current_balance"`
	Balance        BalanceDTO `json:"balance"`
}

// ApplyFormResponse lists the choices for the application form.
type ApplyFormResponse struct {
	Employees  []string `json:"employees"`
	LeaveTypes []string `json:"leave_types"`
}

// ApplyResponse is returned after a leave application.
type ApplyResponse struct {
	Request LeaveRequestDTO `json:"request"`
	Balance BalanceDTO      `json:"balance"`
	Warning string          `json:"warning,omitempty"`
	Message string          `json:"message"`
}

// HistoryResponse is one employee's leave history.
type HistoryResponse struct {
	Name   string            `json:"name"`
	Leaves []LeaveRequestDTO `json:"leaves"`
}

// AdminResponse is the admin dashboard.
type AdminResponse struct {
	Leaves    []LeaveRequestDTO `json:"leaves"`
	Employees []EmployeeDTO     `json:"employees"`
}

// DecisionResponse is returned by approve and reject.
type DecisionResponse struct {
	Request LeaveRequestDTO `json:"request"`
	Message string          `json:"message"`
}

// EntitlementResponse is returned after an entitlement update.
type EntitlementResponse struct {
	Name        string   `json:"name"`
	Entitlement *float64 `json:"entitlement"`
	Message     string   `json:"message"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toLeaveRequestDTO(r generic.LeaveRequest) LeaveRequestDTO {
	return LeaveRequestDTO{
		ID:           int64(r.ID),
		EmployeeName: string(r.EmployeeName),
		LeaveType:    r.LeaveType,
		StartDate:    r.StartDate.String(),
		EndDate:      r.EndDate.String(),
		Days:         r.Days.Float64(),
		HalfDay:      r.HalfDay,
		Status:       string(r.Status),
		Reason:       r.Reason,
		AppliedOn:    r.AppliedOn.UTC().Format(time.RFC3339),
	}
}

func toLeaveRequestDTOs(requests []generic.LeaveRequest) []LeaveRequestDTO {
	dtos := make([]LeaveRequestDTO, 0, len(requests))
	for _, r := range requests {
		dtos = append(dtos, toLeaveRequestDTO(r))
	}
	return dtos
}

func toBalanceDTO(b generic.Balance) BalanceDTO {
	return BalanceDTO{
		AsOf:      b.AsOf.String(),
		Accrued:   b.Accrued.Round2().Float64(),
		Consumed:  b.Consumed.Round2().Float64(),
		Pending:   b.Pending.Round2().Float64(),
		Available: b.Available.Round2().Float64(),
	}
}

func toEmployeeDTO(s timeoff.EmployeeSummary) EmployeeDTO {
	return EmployeeDTO{
		Name:           string(s.Employee.Name),
		Role:           s.Employee.Role,
		JoinDate:       s.Employee.JoinDate.String(),
		Entitlement:    amountPtr(s.Employee.Entitlement),
		CurrentBalance: s.Employee.CurrentBalance.Round2().Float64(),
		Balance:        toBalanceDTO(s.Balance),
	}
}

func amountPtr(a *generic.Amount) *float64 {
	if a == nil {
		return nil
	}
	v := a.Float64()
	return &v
}
