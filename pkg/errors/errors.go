package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
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

// Common error codes
const (
	ErrValidation ErrorCode = iota + 1000
	ErrNotRecognized
	ErrIncompleteData
	ErrUpstream
	ErrUpstreamTimeout
	ErrConflict
	ErrAuth
	ErrUnauthorized
	ErrNotFound
	ErrRateLimited
	ErrInternal
)

// ErrMalformedOutput is wrapped by upstream errors raised when a text
// generation response does not match the expected JSON shape.
var ErrMalformedOutput = stderrors.New("malformed generation output")

// HTTPStatus maps an error code to the status written by the HTTP layer.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case ErrValidation, ErrConflict, ErrAuth:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrNotFound:
		return http.StatusNotFound
	case ErrRateLimited:
		return http.StatusTooManyRequests
	case ErrUpstreamTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (c ErrorCode) String() string {
	switch c {
	case ErrValidation:
		return "validation"
	case ErrNotRecognized:
		return "not_recognized"
	case ErrIncompleteData:
		return "incomplete_data"
	case ErrUpstream:
		return "upstream"
	case ErrUpstreamTimeout:
		return "upstream_timeout"
	case ErrConflict:
		return "conflict"
	case ErrAuth:
		return "auth"
	case ErrUnauthorized:
		return "unauthorized"
	case ErrNotFound:
		return "not_found"
	case ErrRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// Error constructors
func Validation(message string) *AppError {
	return &AppError{Code: ErrValidation, Message: message}
}

func NotRecognized(input string) *AppError {
	return &AppError{
		Code:    ErrNotRecognized,
		Message: "Medicine not recognized",
		Err:     fmt.Errorf("input %q", input),
	}
}

func IncompleteData(message string) *AppError {
	return &AppError{Code: ErrIncompleteData, Message: message}
}

func Upstream(service string, err error) *AppError {
	return &AppError{
		Code:    ErrUpstream,
		Message: fmt.Sprintf("%s request failed", service),
		Err:     err,
	}
}

// MalformedOutput reports a response that could not be parsed. It wraps
// ErrMalformedOutput.
func MalformedOutput(service, detail string) *AppError {
	return &AppError{
		Code:    ErrUpstream,
		Message: fmt.Sprintf("%s returned malformed output", service),
		Err:     fmt.Errorf("%w: %s", ErrMalformedOutput, detail),
	}
}

func UpstreamTimeout(service string, err error) *AppError {
	return &AppError{
		Code:    ErrUpstreamTimeout,
		Message: fmt.Sprintf("%s request timed out", service),
		Err:     err,
	}
}

func Conflict(message string, err error) *AppError {
	return &AppError{Code: ErrConflict, Message: message, Err: err}
}

func Auth(message string) *AppError {
	return &AppError{Code: ErrAuth, Message: message}
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func RateLimited() *AppError {
	return &AppError{Code: ErrRateLimited, Message: "rate limit exceeded"}
}

func Internal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// FromUpstream classifies a failed call to an external service. Errors that
// are already AppErrors pass through unchanged.
func FromUpstream(service string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return UpstreamTimeout(service, err)
	}
	return Upstream(service, err)
}

// CodeOf returns the code of the first AppError in err's chain, or ErrInternal.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == code
}
