// Package apperr defines errors that carry an HTTP status to the API layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a service error with a stable code and an HTTP status
type Error struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap attaches a cause to the error
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

func newError(status int, code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), HTTPStatus: status}
}

func BadRequest(format string, args ...interface{}) *Error {
	return newError(http.StatusBadRequest, "bad_request", format, args...)
}

func Unauthorized(format string, args ...interface{}) *Error {
	return newError(http.StatusUnauthorized, "unauthorized", format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return newError(http.StatusForbidden, "forbidden", format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return newError(http.StatusNotFound, "not_found", format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return newError(http.StatusConflict, "conflict", format, args...)
}

// RateLimited is returned when a caller exceeds its request budget
func RateLimited(limit int, window string) *Error {
	return newError(http.StatusTooManyRequests, "rate_limited", "rate limit of %d requests per %s exceeded", limit, window)
}

func Unavailable(format string, args ...interface{}) *Error {
	return newError(http.StatusServiceUnavailable, "unavailable", format, args...)
}

// Internal hides the cause from clients but keeps it for logs
func Internal(err error) *Error {
	return &Error{Code: "internal", Message: "internal error", HTTPStatus: http.StatusInternalServerError, Err: err}
}

// HTTPStatus returns the status for any error, 500 when it is not an *Error
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatus
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the message safe to show to clients
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
