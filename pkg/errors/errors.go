package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode represents a unique error code
type ErrorCode int

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrConflict
	ErrUnauthorized
	ErrForbidden
	ErrInternal
)

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

// StatusCode maps the error code to an HTTP status, consumed by the
// error handling middleware.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrBadRequest:
		return http.StatusBadRequest
	case ErrConflict:
		return http.StatusConflict
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Code:    ErrForbidden,
		Message: message,
	}
}

// SlotAlternative is a free slot offered in place of a conflicting one.
// Display is suitable for direct presentation to an end user or voice
// agent; ISO carries the machine-readable RFC3339 timestamp.
type SlotAlternative struct {
	Start   time.Time `json:"-"`
	ISO     string    `json:"iso"`
	Display string    `json:"display"`
}

// SlotConflictError reports that the requested slot is occupied. It is a
// business-meaningful outcome, not an internal failure: callers are
// expected to re-prompt with one of the Alternatives or retry with the
// administrative force override.
type SlotConflictError struct {
	Requested    time.Time         `json:"requested"`
	Alternatives []SlotAlternative `json:"alternatives"`
}

func (e *SlotConflictError) Error() string {
	return fmt.Sprintf("slot %s is already booked (%d alternatives available)",
		e.Requested.Format(time.RFC3339), len(e.Alternatives))
}

func (e *SlotConflictError) StatusCode() int {
	return http.StatusConflict
}

// AsSlotConflict unwraps err into a SlotConflictError if it is one.
func AsSlotConflict(err error) (*SlotConflictError, bool) {
	var conflict *SlotConflictError
	if errors.As(err, &conflict) {
		return conflict, true
	}
	return nil, false
}
