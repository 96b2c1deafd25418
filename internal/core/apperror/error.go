// Package apperror defines the error envelope every API failure is
// rendered from: a stable code, a message and optional details.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeInternal   = "INTERNAL_ERROR"
	CodeValidation = "VALIDATION_ERROR"

	// Business rules. All map to 400.
	CodeInsufficientStock        = "INSUFFICIENT_STOCK"
	CodeInsufficientPayment      = "INSUFFICIENT_PAYMENT"
	CodeSessionAlreadyOpen       = "SESSION_ALREADY_OPEN"
	CodeSessionClosed            = "SESSION_CLOSED"
	CodeAlreadySettled           = "ALREADY_SETTLED"
	CodeAlreadyVoided            = "ALREADY_VOIDED"
	CodeMissingCustomerForCredit = "MISSING_CUSTOMER_FOR_CREDIT"

	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeIdempotency  = "IDEMPOTENCY_CONFLICT"
)

// AppError carries a code, a client-safe message and an optional cause
// that is logged but never rendered.
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	HTTPStatus int            `json:"-"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// WithDetail sets one detail key and returns e for chaining.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any, 2)
	}
	e.Details[key] = value
	return e
}

func newError(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

func NewValidation(message string) *AppError {
	return newError(http.StatusBadRequest, CodeValidation, message)
}

// NewNotFound names the missing entity and its id.
func NewNotFound(entity string, id any) *AppError {
	return newError(http.StatusNotFound, CodeNotFound, entity+" not found").
		WithDetail("entity", entity).
		WithDetail("id", id)
}

// NewBusinessRule is a rejected operation that will not succeed if retried
// unchanged.
func NewBusinessRule(code, message string) *AppError {
	return newError(http.StatusBadRequest, code, message)
}

func NewInsufficientStock(productID string, requested, available int64) *AppError {
	return NewBusinessRule(CodeInsufficientStock, "Insufficient stock").
		WithDetail("product_id", productID).
		WithDetail("requested", requested).
		WithDetail("available", available)
}

// NewInsufficientPayment is returned when a non-credit sale is underpaid.
func NewInsufficientPayment(total, paid string) *AppError {
	return NewBusinessRule(CodeInsufficientPayment, "Amount paid does not cover the sale total").
		WithDetail("total", total).
		WithDetail("amount_paid", paid)
}

// NewSessionAlreadyOpen omits session_id when the open session is unknown,
// as after losing a unique-index race.
func NewSessionAlreadyOpen(sessionID string) *AppError {
	e := NewBusinessRule(CodeSessionAlreadyOpen, "A cash session is already open")
	if sessionID != "" {
		e.WithDetail("session_id", sessionID)
	}
	return e
}

func NewSessionClosed(sessionID string) *AppError {
	return NewBusinessRule(CodeSessionClosed, "Cash session is closed").
		WithDetail("session_id", sessionID)
}

func NewAlreadySettled(sessionID string) *AppError {
	return NewBusinessRule(CodeAlreadySettled, "Cash session is already closed").
		WithDetail("session_id", sessionID)
}

func NewAlreadyVoided(saleID string) *AppError {
	return NewBusinessRule(CodeAlreadyVoided, "Sale is already voided").
		WithDetail("sale_id", saleID)
}

func NewMissingCustomerForCredit() *AppError {
	return NewBusinessRule(CodeMissingCustomerForCredit, "Credit sales require a customer")
}

// NewInternal wraps an unexpected failure. The cause is logged only.
func NewInternal(err error) *AppError {
	e := newError(http.StatusInternalServerError, CodeInternal, "Internal server error")
	e.Err = err
	return e
}

func NewUnauthorized(message string) *AppError {
	return newError(http.StatusUnauthorized, CodeUnauthorized, message)
}

func NewForbidden(message string) *AppError {
	return newError(http.StatusForbidden, CodeForbidden, message)
}

func NewConflict(message string) *AppError {
	return newError(http.StatusConflict, CodeConflict, message)
}

// NewIdempotencyConflict: the key is still being processed by another request.
func NewIdempotencyConflict(key string) *AppError {
	return newError(http.StatusConflict, CodeIdempotency, "Operation already in progress or completed").
		WithDetail("idempotency_key", key)
}

// NewIdempotencyMismatch: the key was reused for a different request body
// or endpoint.
func NewIdempotencyMismatch(key string) *AppError {
	return newError(http.StatusConflict, CodeIdempotency, "Idempotency key mismatch").
		WithDetail("idempotency_key", key)
}

// AsAppError finds the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether err carries code.
func Is(err error, code string) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

func IsNotFound(err error) bool {
	return Is(err, CodeNotFound)
}
