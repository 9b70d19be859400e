// Package services implements journey authoring, policy management, simulation and
// real journey runs on top of the evaluator and the persistence layer.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/journey/pkg/persistence"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest        = errors.New("invalid request")
	ErrOrganizationRequired  = errors.New("organization ID cannot be empty")
	ErrJourneyNameRequired   = errors.New("journey name is required")
	ErrInvalidStatus         = errors.New("invalid journey status")
	ErrInvalidStep           = errors.New("invalid step")
	ErrInvalidStepOrder      = errors.New("step order must list every step exactly once")
	ErrDuplicateStepID       = errors.New("duplicate step ID")
	ErrStepsRequired         = errors.New("journey must have at least one step")
	ErrTriggerMustBeFirst    = errors.New("first step must be a TRIGGER")
	ErrActionRequired        = errors.New("journey must have at least one ACTION step")
	ErrInvalidPolicy         = errors.New("invalid organization policy")
	ErrInvalidTimezone       = errors.New("unknown timezone")
	ErrIncompleteQuietHours  = errors.New("quiet hours need both a start and an end minute")
	ErrContactIDRequired     = errors.New("contact ID is required")
	ErrInvalidPolicyOverride = errors.New("invalid policy override")

	// Business Logic Conflicts (409 Conflict).
	ErrJourneyNotEditable  = errors.New("journey can only be edited while in draft")
	ErrJourneyNotPublished = errors.New("journey is not published")
	ErrActiveRunExists     = errors.New("contact already has an active run in this journey")
	ErrInvalidTransition   = errors.New("invalid journey status transition")

	// Not Found (404).
	ErrJourneyNotFound = persistence.ErrJourneyNotFound
	ErrPolicyNotFound  = persistence.ErrPolicyNotFound
	ErrRunNotFound     = persistence.ErrRunNotFound
	ErrStepNotFound    = errors.New("step not found")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrOrganizationRequired) ||
		errors.Is(err, ErrJourneyNameRequired) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidStep) ||
		errors.Is(err, ErrInvalidStepOrder) ||
		errors.Is(err, ErrDuplicateStepID) ||
		errors.Is(err, ErrStepsRequired) ||
		errors.Is(err, ErrTriggerMustBeFirst) ||
		errors.Is(err, ErrActionRequired) ||
		errors.Is(err, ErrInvalidPolicy) ||
		errors.Is(err, ErrInvalidTimezone) ||
		errors.Is(err, ErrIncompleteQuietHours) ||
		errors.Is(err, ErrContactIDRequired) ||
		errors.Is(err, ErrInvalidPolicyOverride)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrJourneyNotEditable) ||
		errors.Is(err, ErrJourneyNotPublished) ||
		errors.Is(err, ErrActiveRunExists) ||
		errors.Is(err, ErrInvalidTransition)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrJourneyNotFound) ||
		errors.Is(err, ErrPolicyNotFound) ||
		errors.Is(err, ErrRunNotFound) ||
		errors.Is(err, ErrStepNotFound)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
