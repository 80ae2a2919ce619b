package order

import (
	"errors"
	"fmt"
)

// Errors returned by the engine. Callers match them with errors.Is; the
// category (validation, invariant, persistence) with the Is* helpers.
var (
	ErrBlankTableName        = errors.New("table name is required")
	ErrTableExists           = errors.New("a table with that name already exists")
	ErrTableNotFound         = errors.New("table not found")
	ErrLastTable             = errors.New("cannot delete the last table")
	ErrReorderMismatch       = errors.New("new order must list every table exactly once")
	ErrEmptyProductName      = errors.New("product name is required")
	ErrInvalidQuantity       = errors.New("quantity must be greater than 0")
	ErrInvalidUnitPrice      = errors.New("unit price must be greater than 0")
	ErrInvalidUnit           = errors.New("unit must be KG or UNIT")
	ErrLineNotFound          = errors.New("line item not found")
	ErrInvalidSelection      = errors.New("selection must be kitchen or payment")
	ErrEmptyKitchenSelection = errors.New("select at least one product")
	ErrEmptyPaymentSelection = errors.New("no items selected for payment")
	ErrNoPaymentMethod       = errors.New("select a payment method")
	ErrInvalidPaymentMethod  = errors.New("payment method must be CASH, DEBIT or TRANSFER")
	ErrInvalidBusinessDate   = errors.New("business date must be a valid YYYY-MM-DD date")
	ErrInvalidTip            = errors.New("tip percentage must be between 0 and 50")
	ErrInvalidAmount         = errors.New("amount must not be negative")
	ErrReentrancyRejected    = errors.New("a payment is already being registered")
	ErrClosed                = errors.New("engine is closed")
)

// ValidationError is a caller-correctable input problem. Nothing was mutated.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// InvariantViolation means the operation would break a structural
// invariant of the registry, such as leaving it without tables.
type InvariantViolation struct {
	Err error
}

func (e *InvariantViolation) Error() string { return e.Err.Error() }
func (e *InvariantViolation) Unwrap() error { return e.Err }

// PersistenceFailure wraps a remote store error on a path where the caller
// waits for the write.
type PersistenceFailure struct {
	Op  string
	Err error
}

func (e *PersistenceFailure) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *PersistenceFailure) Unwrap() error { return e.Err }

func invalid(err error) error { return &ValidationError{Err: err} }

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsInvariant(err error) bool {
	var v *InvariantViolation
	return errors.As(err, &v)
}

func IsPersistence(err error) bool {
	var v *PersistenceFailure
	return errors.As(err, &v)
}
