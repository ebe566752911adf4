package core

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrStorage    = errors.New("storage failure")
)

var (
	ErrEmptyOwner         = Invalid("owner", "required")
	ErrEmptyName          = Invalid("name", "required")
	ErrEmptyCategory      = Invalid("category", "required")
	ErrInvalidAmount      = Invalid("amount", "must be a positive number")
	ErrInvalidDate        = Invalid("date", "not a valid calendar date")
	ErrInvalidMonth       = Invalid("month", "must be formatted as YYYY-MM")
	ErrInvalidKind        = Invalid("kind", "must be income, expense or subscription")
	ErrInvalidAccountKind = Invalid("kind", "must be bank or credit_card")
)

// ValidationError reports a bad or missing input field.
type ValidationError struct {
	Field  string
	Reason string
}

func Invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports a referenced entity that does not exist for the owner.
type NotFoundError struct {
	Entity string
	ID     string
}

func NotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StorageError wraps a failure of the backing store. It is never retried here.
type StorageError struct {
	Op  string
	Err error
}

func Storage(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// Lookup classifies a failed read of entity id: a missing document becomes a
// NotFoundError, anything else a StorageError.
func Lookup(op, entity, id string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return NotFound(entity, id)
	}
	return Storage(op, err)
}
