package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// ValidationError rejects user input before anything is written.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// BackendError wraps a failure of the database, cache or object storage.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Backend wraps err unless it already carries a domain meaning.
func Backend(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || IsValidation(err) {
		return err
	}
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		return err
	}
	return &BackendError{Op: op, Err: err}
}

func IsValidation(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

func IsBackend(err error) bool {
	var backendErr *BackendError
	return errors.As(err, &backendErr)
}

// OrderChange moves one row of an ordered collection to a new index.
type OrderChange struct {
	ID         string
	OrderIndex int
}
