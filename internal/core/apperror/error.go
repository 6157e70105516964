// Package apperror defines the typed failures of the stock ledger and the
// accounting engine. Every failure that crosses the HTTP edge is an *AppError
// carrying a stable code, a client-safe message and optional details.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a classified failure.
type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`

	HTTPStatus int   `json:"-"`
	Err        error `json:"-"` // never rendered
}

func newError(code, message string, details map[string]any) *AppError {
	return &AppError{Code: code, Message: message, Details: details, HTTPStatus: StatusOf(code)}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// WithDetail sets one detail field and returns e.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any, 1)
	}
	e.Details[key] = value
	return e
}

// WithCause records the underlying error for logs.
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// WithStatus overrides the HTTP status derived from the code.
func (e *AppError) WithStatus(status int) *AppError {
	e.HTTPStatus = status
	return e
}

func NewValidation(message string) *AppError {
	return newError(CodeValidation, message, nil)
}

func NewNotFound(entity string, id any) *AppError {
	return newError(CodeNotFound, entity+" not found", map[string]any{"entity": entity, "id": id})
}

// NewInsufficientStock reports a shortage on one product. Quantities arrive
// pre-formatted so the response keeps all four decimals.
func NewInsufficientStock(productID, requested, available string) *AppError {
	return newError(CodeInsufficientStock, "Insufficient stock", map[string]any{
		"product_id": productID,
		"requested":  requested,
		"available":  available,
	})
}

// NewUnbalancedEntry reports debits and credits that differ beyond tolerance.
func NewUnbalancedEntry(debit, credit string) *AppError {
	return newError(CodeUnbalancedEntry, "Journal entry is not balanced", map[string]any{
		"total_debit":  debit,
		"total_credit": credit,
	})
}

// NewUnknownAccount reports a journal line whose account is not in the chart.
func NewUnknownAccount(code string) *AppError {
	return newError(CodeUnknownAccount,
		fmt.Sprintf("Account %s is not in the chart of accounts", code),
		map[string]any{"account_code": code})
}

// NewInvalidBatchParameters rejects a batch with non-positive quantity or
// negative unit cost.
func NewInvalidBatchParameters(message string) *AppError {
	return newError(CodeInvalidBatchParameters, message, nil)
}

// NewConcurrentModification reports a lost optimistic-lock race.
func NewConcurrentModification(entity string, id any) *AppError {
	return newError(CodeConcurrentModification,
		"Record was modified concurrently, retry the operation",
		map[string]any{"entity": entity, "id": id})
}

// NewInternal hides err from the client; it is still logged.
func NewInternal(err error) *AppError {
	e := newError(CodeInternal, "Internal server error", nil)
	e.Err = err
	return e
}

// NewIdempotencyConflict is returned while the first request with key is in flight.
func NewIdempotencyConflict(key string) *AppError {
	return newError(CodeIdempotency, "Operation already in progress or completed",
		map[string]any{"idempotency_key": key})
}

// NewIdempotencyMismatch is returned when key is reused for a different
// actor, route or body.
func NewIdempotencyMismatch(key string) *AppError {
	return newError(CodeIdempotency, "Idempotency key mismatch",
		map[string]any{"idempotency_key": key})
}

func NewDuplicate(entity, field, value string) *AppError {
	return newError(CodeDuplicate, fmt.Sprintf("%s with this %s already exists", entity, field),
		map[string]any{"entity": entity, "field": field, "value": value})
}

// AsAppError finds the first *AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HTTPStatus returns the status to answer err with.
func HTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok && appErr.HTTPStatus != 0 {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// Is reports whether err carries code.
func Is(err error, code string) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

func IsNotFound(err error) bool               { return Is(err, CodeNotFound) }
func IsValidation(err error) bool             { return Is(err, CodeValidation) }
func IsDuplicate(err error) bool              { return Is(err, CodeDuplicate) }
func IsConcurrentModification(err error) bool { return Is(err, CodeConcurrentModification) }
func IsInsufficientStock(err error) bool      { return Is(err, CodeInsufficientStock) }
func IsUnbalancedEntry(err error) bool        { return Is(err, CodeUnbalancedEntry) }
func IsUnknownAccount(err error) bool         { return Is(err, CodeUnknownAccount) }
func IsInvalidBatchParameters(err error) bool { return Is(err, CodeInvalidBatchParameters) }
