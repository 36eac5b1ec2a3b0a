package apperrors

import "errors"

// Generic errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("permission denied")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTokenExpired = errors.New("token expired")
	ErrUnavailable  = errors.New("could not complete operation")
)

// Relationship errors
var (
	ErrConnectionExists   = errors.New("connection already exists")
	ErrSelfConnection     = errors.New("cannot connect with yourself")
	ErrInvalidTransition  = errors.New("connection request is no longer pending")
	ErrConnectionNotFound = errors.New("connection not found")
)

// Event errors
var (
	ErrAlreadyRegistered = errors.New("already registered for this event")
	ErrEventFull         = errors.New("event is full")
	ErrEventNotFound     = errors.New("event not found")
)

// CustomError carries a user-facing message on top of one of the sentinels above
type CustomError struct {
	Err     error
	Message string
	Field   string
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a validation error for a request field
func NewValidationError(field, message string) error {
	return &CustomError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// NewNotFoundError creates a not-found error with a message
func NewNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrNotFound,
		Message: message,
	}
}

// NewConflictError creates a conflict error with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewForbiddenError creates a permission error with a message
func NewForbiddenError(message string) error {
	return &CustomError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// IsNotFound reports whether err is any of the not-found sentinels
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConnectionNotFound) ||
		errors.Is(err, ErrEventNotFound)
}
