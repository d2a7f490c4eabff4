package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid institute code, email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")

	// Tenancy invariants.
	ErrTenantNotResolved = New("TENANT_NOT_RESOLVED", http.StatusInternalServerError, "no tenant resolved for this operation")
	ErrCrossTenant       = New("CROSS_TENANT_VIOLATION", http.StatusForbidden, "entity belongs to a different tenant")

	// Catalog and scheduling invariants.
	ErrDuplicateEntry      = New("DUPLICATE_ENTRY", http.StatusConflict, "an entry with the same identity already exists")
	ErrScheduleOverlap     = New("SCHEDULE_OVERLAP", http.StatusConflict, "schedule overlaps an existing slot on the same day")
	ErrReferentialConflict = New("REFERENTIAL_CONFLICT", http.StatusConflict, "deletion blocked by dependent records")

	// Attendance time-lock.
	ErrWindowExpired        = New("WINDOW_EXPIRED", http.StatusForbidden, "the attendance window for this session is not open")
	ErrAlreadyMarked        = New("ALREADY_MARKED", http.StatusConflict, "attendance for this session has already been marked")
	ErrIncompleteSubmission = New("INCOMPLETE_SUBMISSION", http.StatusBadRequest, "submission does not cover the enrolled student set")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Is reports whether err carries the same code as target.
func Is(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == target.Code
}
