// Package errors carries the API error type shared by services and handlers.
// Services return *AppError for anything a client can act on; every other
// error is reported as a bare 500.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type ErrorCode int

const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrConflict
)

var httpStatus = map[ErrorCode]int{
	ErrNotFound:     http.StatusNotFound,
	ErrBadRequest:   http.StatusBadRequest,
	ErrUnauthorized: http.StatusUnauthorized,
	ErrForbidden:    http.StatusForbidden,
	ErrConflict:     http.StatusConflict,
}

// AppError pairs a client-facing message with the underlying cause, which is
// logged but never sent.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) HTTPStatus() int {
	if status, ok := httpStatus[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func newError(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func NotFound(resource string, err error) *AppError {
	return newError(ErrNotFound, resource+" not found", err)
}

func BadRequest(message string, err error) *AppError {
	return newError(ErrBadRequest, message, err)
}

// Conflict reports a booking or state clash, e.g. a taken slot.
func Conflict(message string, err error) *AppError {
	return newError(ErrConflict, message, err)
}

func Internal(err error) *AppError {
	return newError(ErrInternal, "internal server error", err)
}

func Unauthorized(message string, err error) *AppError {
	return newError(ErrUnauthorized, message, err)
}

func Forbidden(err error) *AppError {
	return newError(ErrForbidden, "permission denied", err)
}

// As extracts an *AppError from the chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode reports whether err carries an AppError with the given code.
func IsCode(err error, code ErrorCode) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}
