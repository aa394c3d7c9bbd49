package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
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

// Is reports whether target is an *AppError carrying the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// StatusCode maps the error code onto an HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrBadRequest:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden, ErrPermissionDenied:
		return http.StatusForbidden
	case ErrAlreadyClaimed:
		return http.StatusConflict
	case ErrInvalidTransition, ErrReasonRequired, ErrPriceOutOfRange:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
)

// Write-gate error codes
const (
	ErrInvalidTransition ErrorCode = iota + 2000
	ErrReasonRequired
	ErrAlreadyClaimed
	ErrPriceOutOfRange
	ErrPermissionDenied
)

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

func NewInvalidTransition(from, to string) *AppError {
	if from == "" {
		from = "<none>"
	}
	return &AppError{
		Code:    ErrInvalidTransition,
		Message: fmt.Sprintf("cannot move stage from %s to %s", from, to),
		Details: map[string]interface{}{"from": from, "to": to},
	}
}

func NewReasonRequired(stage string) *AppError {
	return &AppError{
		Code:    ErrReasonRequired,
		Message: fmt.Sprintf("a reason is required when moving to %s", stage),
	}
}

func NewAlreadyClaimed(owner string) *AppError {
	return &AppError{
		Code:    ErrAlreadyClaimed,
		Message: "service is already claimed",
		Details: map[string]interface{}{"consulting_sale_id": owner},
	}
}

// NewPriceOutOfRange reports which bound ("min" or "max") the value violated.
func NewPriceOutOfRange(bound string, limit int64) *AppError {
	msg := fmt.Sprintf("preferential price must be at least %d", limit)
	if bound == "max" {
		msg = fmt.Sprintf("preferential price must not exceed %d", limit)
	}
	return &AppError{
		Code:    ErrPriceOutOfRange,
		Message: msg,
		Details: map[string]interface{}{"bound": bound, "limit": limit},
	}
}

func NewPermissionDenied(reason string) *AppError {
	if reason == "" {
		reason = "permission denied"
	}
	return &AppError{
		Code:    ErrPermissionDenied,
		Message: reason,
	}
}

// Common errors
func NotFound(resource string, err error) *AppError {
	return NewNotFound(resource, err)
}

func BadRequest(message string, err error) *AppError {
	return NewBadRequest(message, err)
}

func Internal(err error) *AppError {
	return NewInternal(err)
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or ErrInternal.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}
