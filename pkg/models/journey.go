// Package models defines the core domain models for journey automation
package models

import "time"

// JourneyStatus represents the lifecycle state of a journey.
type JourneyStatus string

const (
	JourneyStatusDraft     JourneyStatus = "draft"     // Editable, can only be simulated
	JourneyStatusPublished JourneyStatus = "published" // Frozen, accepts real runs
	JourneyStatusArchived  JourneyStatus = "archived"  // Historical, no new runs
)

// Journey is a named, ordered automation flow applied to contacts matching its trigger.
type Journey struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organization_id" validate:"required"`
	Name           string         `json:"name"            validate:"required,min=3"`
	Description    string         `json:"description"`
	Status         JourneyStatus  `json:"status"          validate:"required,oneof=draft published archived"`
	Steps          []*JourneyStep `json:"steps"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	PublishedAt    *time.Time     `json:"published_at,omitempty"`
}

// StepIndex returns the position of the step with the given ID, or -1.
func (j *Journey) StepIndex(stepID string) int {
	for i, step := range j.Steps {
		if step.ID == stepID {
			return i
		}
	}

	return -1
}

// IsEditable reports whether steps and metadata may still change.
func (j *Journey) IsEditable() bool {
	return j.Status == JourneyStatusDraft
}
