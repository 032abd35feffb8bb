package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// ValidationError signals malformed or missing required input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for '%s': %s", e.Field, e.Message)
	}
	return "validation failed: " + e.Message
}

// NewValidation creates a ValidationError for a specific field.
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError signals that a referenced entity does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s '%s' not found", e.Entity, e.ID)
	}
	return e.Entity + " not found"
}

// NewNotFound creates a NotFoundError for an entity and id.
func NewNotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// ForbiddenError signals a failed capability check or webhook secret mismatch.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string {
	if e.Message == "" {
		return "access denied"
	}
	return e.Message
}

// NewForbidden creates a ForbiddenError with a display message.
func NewForbidden(message string) *ForbiddenError {
	return &ForbiddenError{Message: message}
}

// ConflictError signals a disallowed state transition.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// NewConflict creates a ConflictError with a display message.
func NewConflict(message string) *ConflictError {
	return &ConflictError{Message: message}
}

// InsufficientBalanceError signals a wallet application exceeding the
// projected balance. Available carries the balance for display.
type InsufficientBalanceError struct {
	Available decimal.Decimal
	Requested decimal.Decimal
	Currency  string
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient wallet balance: requested %s %s, available %s",
		e.Requested.StringFixed(2), e.Currency, e.Available.StringFixed(2))
}

// StatusCode maps an error from the taxonomy to an HTTP status code,
// unwrapping as needed. Unknown errors map to 500.
func StatusCode(err error) int {
	var (
		validation   *ValidationError
		notFound     *NotFoundError
		forbidden    *ForbiddenError
		conflict     *ConflictError
		insufficient *InsufficientBalanceError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &forbidden):
		return http.StatusForbidden
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &insufficient):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
