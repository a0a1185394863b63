// Package apperr defines the domain error taxonomy. Handlers map these onto
// HTTP statuses; anything outside the taxonomy is treated as an internal
// storage/transport failure and must not be confused with a domain rejection.
package apperr

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNotFound indicates the addressed record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError reports malformed input. Always raised before any write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Validation builds a ValidationError for a field.
func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// InvalidStateError reports an action attempted against a record whose
// current status does not permit it (e.g. rejecting an approved request).
// The record is left untouched.
type InvalidStateError struct {
	Entity   string
	Current  string
	Expected string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s is %s, expected %s", e.Entity, e.Current, e.Expected)
}

// InsufficientStockError names the offending product and both quantities so
// the caller can adjust the line item.
type InsufficientStockError struct {
	ProductID   uuid.UUID
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (requested %d, available %d)",
		e.ProductName, e.Requested, e.Available)
}

// NegativeStockError reports a stock adjustment that would take
// quantity-on-hand below zero.
type NegativeStockError struct {
	ProductID uuid.UUID
	Current   int
	Delta     int
}

func (e *NegativeStockError) Error() string {
	return fmt.Sprintf("stock adjustment of %d would take quantity below zero (current %d)",
		e.Delta, e.Current)
}

// ForbiddenError reports an actor whose role lacks the capability for the
// attempted operation.
type ForbiddenError struct {
	Role   string
	Action string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("role %s may not %s", e.Role, e.Action)
}

// Code returns a stable machine-readable code for the error, used in the API
// error envelope.
func Code(err error) string {
	var (
		ve *ValidationError
		se *InvalidStateError
		ie *InsufficientStockError
		ne *NegativeStockError
		fe *ForbiddenError
	)
	switch {
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrInvalidCredentials):
		return "INVALID_CREDENTIALS"
	case errors.As(err, &ve):
		return "VALIDATION"
	case errors.As(err, &se):
		return "INVALID_STATE"
	case errors.As(err, &ie):
		return "INSUFFICIENT_STOCK"
	case errors.As(err, &ne):
		return "NEGATIVE_STOCK"
	case errors.As(err, &fe):
		return "FORBIDDEN"
	default:
		return "INTERNAL"
	}
}

// IsDomain reports whether err belongs to the taxonomy, i.e. is a deliberate
// rejection rather than a storage or transport failure.
func IsDomain(err error) bool {
	return Code(err) != "INTERNAL"
}
