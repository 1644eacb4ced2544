/*
errors.go - Centralized error taxonomy for the family coins core

PURPOSE:
  All error categories in one place for consistency and discoverability.
  Services return structured errors that wrap sentinel errors, so callers
  can branch with errors.Is and extract details with errors.As.

ERROR CATEGORIES:
  1. Validation errors  - malformed input, broken business invariants
  2. Not-found errors   - goal/item/task/user absent
  3. Forbidden errors   - role or ownership violations
  4. State errors       - illegal status transitions
  5. Funds errors       - debit exceeding available balance

USAGE:
  if errors.Is(err, family.ErrInsufficientFunds) {
      var fundsErr *family.InsufficientFundsError
      errors.As(err, &fundsErr)
      // fundsErr.Required, fundsErr.Available
  }
*/
package family

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed input or violated invariants
	// (missing required fields, weight-sum violations, bad executor sets).
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned on role or ownership violations.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidState is returned for illegal status transitions.
	ErrInvalidState = errors.New("invalid state transition")

	// ErrInsufficientFunds is returned when a debit exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the rule that failed so goal-creation failures can
// enumerate exactly which validation broke.
type ValidationError struct {
	Rule    string // e.g. "weight_sum", "executor_arity", "target_value"
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Rule, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError identifies what kind of entity was missing.
type NotFoundError struct {
	Kind string // "goal", "user", "store_item", "task", "assignment"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ForbiddenError reports a role or ownership violation.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return "forbidden: " + e.Message }
func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

// InvalidStateError reports an illegal status transition.
type InvalidStateError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid %s transition: %s -> %s", e.Entity, e.From, e.To)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// InsufficientFundsError carries the exact deficit so purchase and
// adjustment failures can report required vs available.
type InsufficientFundsError struct {
	UserID    UserID
	Required  int
	Available int
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: required %d, available %d", e.Required, e.Available)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input
// rather than a system failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrInvalidState)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
