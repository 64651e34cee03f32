package services

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// NotFoundError is returned when a referenced customer, session or plan does not exist.
type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

// ConflictError is returned when an operation would break a uniqueness or
// state invariant.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return e.Reason
}

// InsufficientFundsError carries the amounts needed to render a precise message.
type InsufficientFundsError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient balance: required %s, available %s",
		e.Required.StringFixed(2), e.Available.StringFixed(2))
}

// ValidationError reports malformed input caught before touching the ledger.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

var (
	ErrActiveSessionExists = &ConflictError{Reason: "customer already has an active session"}
	ErrSessionClosed       = &ConflictError{Reason: "session is already closed"}
	ErrMobileRegistered    = &ConflictError{Reason: "mobile number already registered"}

	// errConcurrentUpdate signals that the optimistic version check on the
	// customer row failed.
	errConcurrentUpdate = errors.New("optimistic lock failed")
)

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// IsInsufficientFunds reports whether err is an InsufficientFundsError.
func IsInsufficientFunds(err error) bool {
	var target *InsufficientFundsError
	return errors.As(err, &target)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

const (
	pqUniqueViolation = "23505"

	constraintActiveSession = "sessions_one_active_per_customer"
	constraintMobileNumber  = "customers_mobile_number_key"
)

// mapConstraintError turns store-level unique violations into ConflictErrors.
func mapConstraintError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pqUniqueViolation {
		return err
	}
	switch pqErr.Constraint {
	case constraintActiveSession:
		return ErrActiveSessionExists
	case constraintMobileNumber:
		return ErrMobileRegistered
	default:
		return &ConflictError{Reason: fmt.Sprintf("duplicate value violates %s", pqErr.Constraint)}
	}
}
