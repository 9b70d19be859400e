// Package persistence provides the storage abstraction for journeys, organization
// policies and journey runs.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/journey/pkg/models"
)

// Persistence groups the repositories of a storage backend.
type Persistence interface {
	JourneyRepository() JourneyRepository
	PolicyRepository() PolicyRepository
	RunRepository() RunRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// ListJourneysOptions filters and paginates journey listings.
type ListJourneysOptions struct {
	OrganizationID string
	Status         *models.JourneyStatus
	Limit          int
	Offset         int
}

// JourneyListResult is a page of journeys.
type JourneyListResult struct {
	Journeys    []*models.Journey `json:"journeys"`
	TotalCount  int64             `json:"total_count"`
	HasNextPage bool              `json:"has_next_page"`
}

// JourneyRepository stores journey definitions.
type JourneyRepository interface {
	List(ctx context.Context, opts ListJourneysOptions) (*JourneyListResult, error)
	// GetByID returns ErrJourneyNotFound when the journey does not exist.
	GetByID(ctx context.Context, id string) (*models.Journey, error)
	Save(ctx context.Context, journey *models.Journey) error
	Delete(ctx context.Context, id string) error
}

// PolicyRepository is the per-organization policy store.
type PolicyRepository interface {
	// Get returns ErrPolicyNotFound when the organization has no policy.
	Get(ctx context.Context, organizationID string) (*models.OrganizationPolicy, error)
	Save(ctx context.Context, policy *models.OrganizationPolicy) error
}

// RunRepository stores journey runs and their scheduled actions.
type RunRepository interface {
	Save(ctx context.Context, run *models.JourneyRun) error
	// GetByID returns ErrRunNotFound when the run does not exist.
	GetByID(ctx context.Context, id string) (*models.JourneyRun, error)
	ListByJourney(ctx context.Context, journeyID string, limit int) ([]*models.JourneyRun, error)
	// ActiveRun returns the active run of a contact in a journey, or nil.
	ActiveRun(ctx context.Context, journeyID, contactID string) (*models.JourneyRun, error)
	// DueActions returns scheduled actions with ScheduledAt not after before,
	// oldest first.
	DueActions(ctx context.Context, before time.Time, limit int) ([]*models.ScheduledAction, error)
	// MarkDispatched flips a scheduled action to dispatched. It returns
	// ErrScheduledActionNotFound when no scheduled action has the ID.
	MarkDispatched(ctx context.Context, actionID string, at time.Time) error
}
