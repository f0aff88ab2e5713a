package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("validation error")
	ErrNameConflict   = errors.New("name conflict")
	ErrIdentityLinked = errors.New("identity linked")
	ErrContention     = errors.New("write contention")
	ErrConstraint     = errors.New("constraint violation")
	ErrForbidden      = errors.New("forbidden")
)

type AppError struct {
	Err     error  // underlying sentinel
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// NameConflict reports that a rename or creation would make two distinct
// identities claim the same name.
func NameConflict(name, reason string) *AppError {
	return &AppError{
		Err:     ErrNameConflict,
		Message: fmt.Sprintf("name %q %s", name, reason),
	}
}

// IdentityLinked reports an attempt to delete a participant that is still
// linked to a user. The participant must be unlinked first.
func IdentityLinked(name string) *AppError {
	return &AppError{
		Err:     ErrIdentityLinked,
		Message: fmt.Sprintf("participant %q is linked to a user and cannot be deleted", name),
	}
}

// Contention reports a concurrent-write conflict. This is the only error kind
// callers are expected to retry automatically.
func Contention(op string) *AppError {
	return &AppError{
		Err:     ErrContention,
		Message: fmt.Sprintf("%s: write contention, retry", op),
	}
}

// Constraint reports a referential-integrity problem not covered by the more
// specific kinds, e.g. a quote submitted with zero lines.
func Constraint(message string) *AppError {
	return &AppError{
		Err:     ErrConstraint,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}
