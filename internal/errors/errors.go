// Package errors provides structured error types for planboard.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the tracker's failure modes.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrConstraint        = errors.New("constraint violation")
	ErrCorruptHierarchy  = errors.New("corrupt task hierarchy")
	ErrInvalidInput      = errors.New("invalid input")
)

// NotFound wraps ErrNotFound with the entity and id that were missing.
func NotFound(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
}

// Constraint wraps ErrConstraint with a reason.
func Constraint(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrConstraint)...)
}

// Transition wraps ErrInvalidTransition with the rejected move.
func Transition(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidTransition)...)
}

// PersistenceError represents a failed read or write of a backing
// collection file. The primary mutation is not considered committed.
type PersistenceError struct {
	Kind string // personnel | tasks | logs
	Op   string // load | save
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NewPersistenceError creates a persistence error for a collection.
func NewPersistenceError(kind, op string, err error) *PersistenceError {
	return &PersistenceError{Kind: kind, Op: op, Err: err}
}

// IsPersistence reports whether err is a persistence failure.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
