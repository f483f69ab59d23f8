// Package errors defines the coded errors shared by the collector, storage
// and the preview API.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrCode represents an error code
type ErrCode string

const (
	ErrCodeNotFound     ErrCode = "NOT_FOUND"
	ErrCodeUnauthorized ErrCode = "UNAUTHORIZED"
	ErrCodeRateLimited  ErrCode = "RATE_LIMITED"
	ErrCodeUnavailable  ErrCode = "UNAVAILABLE"
	ErrCodeInternal     ErrCode = "INTERNAL_ERROR"
	ErrCodeBadRequest   ErrCode = "BAD_REQUEST"
	ErrCodeForbidden    ErrCode = "FORBIDDEN"
)

// HTTPStatus is the response status the preview API uses for the code.
// UNAVAILABLE means GitHub failed, so it maps to 502.
func (c ErrCode) HTTPStatus() int {
	switch c {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest:
		return http.StatusBadRequest
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AppError is an error with a machine-readable code. Err, when set, is the
// underlying cause and is reachable through errors.Is/As.
type AppError struct {
	Code    ErrCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newError(code ErrCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewNotFoundError reports that resource does not exist
func NewNotFoundError(resource string) *AppError {
	return newError(ErrCodeNotFound, resource+" not found", nil)
}

func NewUnauthorizedError(message string) *AppError {
	return newError(ErrCodeUnauthorized, message, nil)
}

// NewRateLimitedError reports an exhausted or throttled GitHub quota
func NewRateLimitedError(message string, err error) *AppError {
	return newError(ErrCodeRateLimited, message, err)
}

// NewUnavailableError reports a transport failure or an unusable response
func NewUnavailableError(message string, err error) *AppError {
	return newError(ErrCodeUnavailable, message, err)
}

func NewInternalError(message string, err error) *AppError {
	return newError(ErrCodeInternal, message, err)
}

func NewBadRequestError(message string) *AppError {
	return newError(ErrCodeBadRequest, message, nil)
}

func NewForbiddenError(message string) *AppError {
	return newError(ErrCodeForbidden, message, nil)
}

// CodeOf returns the code of the first AppError in err's chain, or "" if none
func CodeOf(err error) ErrCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func IsNotFound(err error) bool    { return CodeOf(err) == ErrCodeNotFound }
func IsRateLimited(err error) bool { return CodeOf(err) == ErrCodeRateLimited }
func IsUnavailable(err error) bool { return CodeOf(err) == ErrCodeUnavailable }
