// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrJourneyNotFound indicates a journey was not found by the given identifier.
	ErrJourneyNotFound = errors.New("journey not found")

	// ErrPolicyNotFound indicates the organization has no messaging policy.
	ErrPolicyNotFound = errors.New("policy not found")

	// ErrRunNotFound indicates a journey run was not found.
	ErrRunNotFound = errors.New("journey run not found")

	// ErrScheduledActionNotFound indicates no scheduled action has the identifier.
	ErrScheduledActionNotFound = errors.New("scheduled action not found")

	// ErrActiveRunConflict indicates the contact already has an active run in the journey.
	ErrActiveRunConflict = errors.New("active run already exists")

	// ErrInvalidID indicates an identifier unsafe for the storage backend.
	ErrInvalidID = errors.New("invalid identifier")
)

// JourneyError wraps journey-related errors with additional context.
type JourneyError struct {
	Op        string // Operation being performed (e.g., "GetByID", "Save", "Delete")
	JourneyID string
	Err       error
}

func (e *JourneyError) Error() string {
	return fmt.Sprintf("%s operation failed for journey %s: %v", e.Op, e.JourneyID, e.Err)
}

func (e *JourneyError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for journey errors.
func (e *JourneyError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewJourneyError creates a new journey error with context.
func NewJourneyError(op, journeyID string, err error) *JourneyError {
	return &JourneyError{Op: op, JourneyID: journeyID, Err: err}
}

// RunError wraps run-related errors with additional context.
type RunError struct {
	Op    string
	RunID string
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s operation failed for run %s: %v", e.Op, e.RunID, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

func (e *RunError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewRunError creates a new run error with context.
func NewRunError(op, runID string, err error) *RunError {
	return &RunError{Op: op, RunID: runID, Err: err}
}

// IsJourneyNotFound checks if an error indicates a journey was not found.
func IsJourneyNotFound(err error) bool {
	return errors.Is(err, ErrJourneyNotFound)
}

// IsPolicyNotFound checks if an error indicates a missing policy.
func IsPolicyNotFound(err error) bool {
	return errors.Is(err, ErrPolicyNotFound)
}

// IsRunNotFound checks if an error indicates a run was not found.
func IsRunNotFound(err error) bool {
	return errors.Is(err, ErrRunNotFound)
}

// IsActiveRunConflict checks if an error indicates a second active run for a contact.
func IsActiveRunConflict(err error) bool {
	return errors.Is(err, ErrActiveRunConflict)
}

// IsScheduledActionNotFound checks if an error indicates a scheduled action was not found.
func IsScheduledActionNotFound(err error) bool {
	return errors.Is(err, ErrScheduledActionNotFound)
}
