// Package apperr defines the classified failure type raised intentionally by
// application code, together with the stable machine-readable codes that are
// exposed to clients.
//
// A classified failure carries its own HTTP status, code and client-safe
// message. Anything that is not an *Error (driver errors, bugs, panics) is an
// unclassified failure and is rendered generically by the HTTP dispatcher.
//
// Conventions:
//   - Codes are lowercase snake_case and mirror HTTP semantics unless they are
//     domain-specific.
//   - Message is always safe to show to users. Cause is for logs only and is
//     never serialized.
//   - Validation failures always carry StatusUnprocessableEntity and
//     CodeValidation together.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable, machine-readable codes.
const (
	CodeValidation       = "validation_failed"
	CodeBadRequest       = "bad_request"
	CodeUnauthorized     = "unauthorized"
	CodeForbidden        = "forbidden"
	CodeNotFound         = "not_found"
	CodeMethodNotAllowed = "method_not_allowed"
	CodeConflict         = "conflict"
	CodePayloadTooLarge  = "payload_too_large"
	CodeRateLimited      = "too_many_requests"

	// Domain-specific:
	CodeCityNotFound   = "city_not_found"
	CodeEventNotFound  = "event_not_found"
	CodeIdempotencyKey = "bad_idempotency_key"
)

// FieldError describes one violated rule on one input field. Field is empty
// when the violation concerns the payload as a whole.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Error is a classified failure.
type Error struct {
	Status  int          `json:"status"`
	Code    string       `json:"code,omitempty"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
	Cause   error        `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%d %s: %s: %v", e.Status, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.Cause }

// StatusCode returns the HTTP status carried by the failure.
func (e *Error) StatusCode() int { return e.Status }

// IsValidation reports whether e is the structured, field-addressable
// validation failure.
func (e *Error) IsValidation() bool {
	return e.Code == CodeValidation && e.Status == http.StatusUnprocessableEntity
}

// WithCause returns a copy of e wrapping cause.
func (e *Error) WithCause(cause error) *Error {
	cp := *e
	cp.Fields = cloneFields(e.Fields)
	cp.Cause = cause
	return &cp
}

// New creates a classified failure.
func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// Wrap creates a classified failure that keeps cause for diagnostics.
func Wrap(cause error, status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message, Cause: cause}
}

// Validation builds the 422 failure produced by the validation stage. The
// field slice is copied so later mutation by the caller cannot leak in.
func Validation(fields []FieldError) *Error {
	return &Error{
		Status:  http.StatusUnprocessableEntity,
		Code:    CodeValidation,
		Message: "validation failed",
		Fields:  cloneFields(fields),
	}
}

// BadRequest is a 400 with the given code.
func BadRequest(code, message string) *Error {
	return New(http.StatusBadRequest, code, message)
}

// NotFound is a 404 with the given code.
func NotFound(code, message string) *Error {
	return New(http.StatusNotFound, code, message)
}

// Conflict is a 409.
func Conflict(message string) *Error {
	return New(http.StatusConflict, CodeConflict, message)
}

// MethodNotAllowed is a 405.
func MethodNotAllowed() *Error {
	return New(http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
}

// RateLimited is a 429.
func RateLimited() *Error {
	return New(http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded")
}

// PayloadTooLarge is a 413 wrapping the underlying read error.
func PayloadTooLarge(cause error) *Error {
	return Wrap(cause, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "request body too large")
}

// As extracts a classified failure from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e, true
	}
	return nil, false
}

func cloneFields(in []FieldError) []FieldError {
	if len(in) == 0 {
		return nil
	}
	out := make([]FieldError, len(in))
	copy(out, in)
	return out
}
