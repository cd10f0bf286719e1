/*
handlers.go - HTTP API handlers for the leave tracker

PURPOSE:
  Exposes the leave ledger via HTTP. Handles request parsing (HTML form
  or JSON bodies), JSON serialization, and delegates to timeoff.Ledger.

ENDPOINTS:
  Public:
    GET    /                         Redirect to /apply
    GET    /balance/{name}           {"balance": n}, 0 for unknown names
    GET    /apply                    Employees and leave types for the form
    POST   /apply                    Submit a leave request
    GET    /history/{name}           One employee's requests, newest first

  Admin (session required, see auth.go):
    GET    /admin                    All requests and all employees
    GET    /approve/{id}             Pending -> Approved, refreshes the balance
    GET    /reject/{id}              Pending -> Rejected
    POST   /update_entitlement       Set or clear an employee's cap
    POST   /admin/recompute          Rewrite cached balances

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed input (bad date, missing employee, bad id)
  - 404: Unknown employee or request
  - 409: Request already decided
  - 500: Internal errors

  A short balance is not an error. Apply answers 201 with a warning.

SEE ALSO:
  - dto.go: Request/response data structures
  - auth.go: Admin session
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/leave-tracker/generic"
	"github.com/warp/leave-tracker/timeoff"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger *timeoff.Ledger
	logger *zap.Logger
}

// NewHandler creates a new handler over the given ledger.
func NewHandler(ledger *timeoff.Ledger, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.L()
	}
	return &Handler{
		Ledger: ledger,
		logger: logger.Named("api"),
	}
}

// Home sends visitors to the application form.
// GET /
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/apply", http.StatusFound)
}

// =============================================================================
// BALANCE
// =============================================================================

// GetBalance returns the employee's available balance today.
// GET /balance/{name}
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	name, err := nameParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid employee name", err)
		return
	}

	bal, err := h.Ledger.Balance(r.Context(), name, h.Ledger.Today())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to calculate balance", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]float64{
		"balance": bal.Available.Round2().Float64(),
	})
}

// =============================================================================
// APPLY
// =============================================================================

// ApplyForm lists what the application form needs.
// GET /apply
func (h *Handler) ApplyForm(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.Ledger.Employees(r.Context(), h.Ledger.Today())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	names := make([]string, 0, len(summaries))
	for _, s := range summaries {
		names = append(names, string(s.Employee.Name))
	}
	writeJSON(w, http.StatusOK, ApplyFormResponse{
		Employees:  names,
		LeaveTypes: generic.LeaveTypes(),
	})
}

// Apply submits a leave request.
// POST /apply
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	req, err := parseApplyRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	employee := strings.TrimSpace(req.Employee)
	if employee == "" {
		writeError(w, http.StatusBadRequest, "employee is required", nil)
		return
	}
	start, err := generic.ParseDate(strings.TrimSpace(req.StartDate))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date format (use YYYY-MM-DD)", err)
		return
	}
	end, err := generic.ParseDate(strings.TrimSpace(req.EndDate))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date format (use YYYY-MM-DD)", err)
		return
	}

	res, err := h.Ledger.Apply(r.Context(), timeoff.ApplyInput{
		Employee:  generic.EmployeeName(employee),
		LeaveType: req.LeaveType,
		Start:     start,
		End:       end,
		HalfDay:   req.Half,
		Reason:    req.Reason,
	})
	if err != nil {
		if generic.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Employee not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to apply for leave", err)
		return
	}

	message := "Leave applied successfully!"
	if res.Warning != "" {
		message = "Warning: " + res.Warning
	}
	writeJSON(w, http.StatusCreated, ApplyResponse{
		Request: toLeaveRequestDTO(res.Request),
		Balance: toBalanceDTO(res.Balance),
		Warning: res.Warning,
		Message: message,
	})
}

// parseApplyRequest reads a JSON body or an HTML form. A form's "half"
// checkbox arrives as "on".
func parseApplyRequest(r *http.Request) (ApplyRequest, error) {
	var req ApplyRequest
	if isJSON(r) {
		err := json.NewDecoder(r.Body).Decode(&req)
		return req, err
	}

	if err := r.ParseForm(); err != nil {
		return req, err
	}
	req = ApplyRequest{
		Employee:  r.PostForm.Get("employee"),
		LeaveType: r.PostForm.Get("leave_type"),
		StartDate: r.PostForm.Get("start_date"),
		EndDate:   r.PostForm.Get("end_date"),
		Half:      checked(r.PostForm.Get("half")),
		Reason:    r.PostForm.Get("reason"),
	}
	return req, nil
}

func checked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// =============================================================================
// HISTORY
// =============================================================================

// History lists one employee's requests, newest first.
// GET /history/{name}
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	name, err := nameParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid employee name", err)
		return
	}

	requests, err := h.Ledger.ListFor(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get history", err)
		return
	}

	writeJSON(w, http.StatusOK, HistoryResponse{
		Name:   string(name),
		Leaves: toLeaveRequestDTOs(requests),
	})
}

// =============================================================================
// ADMIN
// =============================================================================

// Admin returns every request and every employee with balances.
// GET /admin
func (h *Handler) Admin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requests, err := h.Ledger.ListAll(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list requests", err)
		return
	}
	summaries, err := h.Ledger.Employees(ctx, h.Ledger.Today())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	employees := make([]EmployeeDTO, 0, len(summaries))
	for _, s := range summaries {
		employees = append(employees, toEmployeeDTO(s))
	}
	writeJSON(w, http.StatusOK, AdminResponse{
		Leaves:    toLeaveRequestDTOs(requests),
		Employees: employees,
	})
}

// Approve approves a pending request.
// GET /approve/{id}
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "approved", h.Ledger.Approve)
}

// Reject rejects a pending request.
// GET /reject/{id}
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "rejected", h.Ledger.Reject)
}

func (h *Handler) decide(
	w http.ResponseWriter,
	r *http.Request,
	verb string,
	transition func(context.Context, generic.RequestID) (generic.LeaveRequest, error),
) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request id", err)
		return
	}

	req, err := transition(r.Context(), generic.RequestID(id))
	if err != nil {
		switch {
		case generic.IsNotFound(err):
			writeError(w, http.StatusNotFound, "Request not found", err)
		case generic.IsConflict(err):
			writeError(w, http.StatusConflict, "Request is not pending", err)
		default:
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to mark request %s", verb), err)
		}
		return
	}

	h.logger.Info("request decided",
		zap.Int64("request_id", id),
		zap.String("status", string(req.Status)),
		zap.String("decided_by", adminFrom(r.Context())),
	)
	writeJSON(w, http.StatusOK, DecisionResponse{
		Request: toLeaveRequestDTO(req),
		Message: "Leave " + verb,
	})
}

// UpdateEntitlement sets an employee's cap. A blank or non-numeric value
// makes the employee unbounded.
// POST /update_entitlement
func (h *Handler) UpdateEntitlement(w http.ResponseWriter, r *http.Request) {
	var req UpdateEntitlementRequest
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid form", err)
			return
		}
		req = UpdateEntitlementRequest{
			Name:        r.PostForm.Get("name"),
			Entitlement: r.PostForm.Get("entitlement"),
		}
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	entitlement, err := h.Ledger.SetEntitlement(r.Context(), generic.EmployeeName(name), req.Entitlement)
	if err != nil {
		if generic.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Employee not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update entitlement", err)
		return
	}

	writeJSON(w, http.StatusOK, EntitlementResponse{
		Name:        name,
		Entitlement: amountPtr(entitlement),
		Message:     "Entitlement updated.",
	})
}

// Recompute rewrites every cached balance from the ledger.
// POST /admin/recompute
func (h *Handler) Recompute(w http.ResponseWriter, r *http.Request) {
	n, err := h.Ledger.Recompute(r.Context(), h.Ledger.Today())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to recompute balances", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

// =============================================================================
// HELPERS
// =============================================================================

// nameParam returns the decoded {name} segment. chi routes on RawPath when
// the request has one, and only then is the parameter still escaped.
func nameParam(r *http.Request) (generic.EmployeeName, error) {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath != "" {
		var err error
		if name, err = url.PathUnescape(name); err != nil {
			return "", err
		}
	}
	return generic.EmployeeName(strings.TrimSpace(name)), nil
}

func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
