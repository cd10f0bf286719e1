/*
errors.go - Centralized error types for the leave tracker

PURPOSE:
  All sentinel errors in one place. Stores and the ledger wrap these with
  context; the HTTP layer maps them to status codes with errors.Is.

ERROR CATEGORIES:
  1. Not found - Employee or request does not exist
  2. Conflict - State transition on a request that is no longer pending
  3. Store errors - Driver failures, wrapped with fmt.Errorf

Some conditions are not errors at all:
  - An invalid date range yields a 0-day request
  - An unparseable entitlement clears the cap
  - A balance shortfall is a warning on the apply result
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEmployeeNotFound is returned when a referenced employee doesn't exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrRequestNotFound is returned when a referenced leave request doesn't exist.
	ErrRequestNotFound = errors.New("leave request not found")

	// ErrRequestNotPending is returned when approving or rejecting a request
	// that already reached a terminal status.
	ErrRequestNotPending = errors.New("leave request is not pending")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// TransitionError reports a refused status change.
type TransitionError struct {
	RequestID RequestID
	From      string
	To        string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("leave request %d: cannot move from %s to %s", e.RequestID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrRequestNotPending
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrRequestNotFound)
}

// IsConflict returns true if the error is a refused state transition.
func IsConflict(err error) bool {
	return errors.Is(err, ErrRequestNotPending)
}
