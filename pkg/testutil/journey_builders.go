// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"github.com/dukex/journey/pkg/models"
	"github.com/google/uuid"
)

// TriggerStep creates an entry step for the given event.
func TriggerStep(event string) *models.JourneyStep {
	return &models.JourneyStep{
		ID:      uuid.New().String(),
		Kind:    models.StepKindTrigger,
		Label:   "Entry",
		Trigger: &models.TriggerConfig{Event: event},
	}
}

// ConditionStep creates a condition step.
func ConditionStep(field, operator, value string) *models.JourneyStep {
	return &models.JourneyStep{
		ID:    uuid.New().String(),
		Kind:  models.StepKindCondition,
		Label: "Check " + field,
		Condition: &models.ConditionConfig{
			Field:    field,
			Operator: operator,
			Value:    value,
		},
	}
}

// DelayStep creates a delay step.
func DelayStep(minutes int) *models.JourneyStep {
	return &models.JourneyStep{
		ID:    uuid.New().String(),
		Kind:  models.StepKindDelay,
		Label: "Wait",
		Delay: &models.DelayConfig{Minutes: minutes},
	}
}

// ActionStep creates an action step on the given channel.
func ActionStep(channel models.Channel) *models.JourneyStep {
	return &models.JourneyStep{
		ID:    uuid.New().String(),
		Kind:  models.StepKindAction,
		Label: "Send " + string(channel),
		Action: &models.ActionConfig{
			Channel:  channel,
			Title:    "We miss you",
			Body:     "Book your next match",
			CTALabel: "Book now",
			CTAURL:   "https://example.com/book",
		},
	}
}

// CreateTestJourney creates a draft journey with default values that can be overridden.
func CreateTestJourney(overrides ...func(*models.Journey)) *models.Journey {
	journey := &models.Journey{
		ID:             uuid.New().String(),
		OrganizationID: "org-1",
		Name:           "Win-back",
		Description:    "Re-engage dormant players",
		Status:         models.JourneyStatusDraft,
		Steps: []*models.JourneyStep{
			TriggerStep("contact.inactive"),
			ConditionStep(models.FieldLastActivityAt, models.OperatorGte, "30d"),
			DelayStep(60),
			ActionStep(models.ChannelInApp),
		},
	}

	for _, override := range overrides {
		override(journey)
	}

	return journey
}

// WithOrganization sets the journey organization.
func WithOrganization(orgID string) func(*models.Journey) {
	return func(j *models.Journey) {
		j.OrganizationID = orgID
	}
}

// WithStatus sets the journey status.
func WithStatus(status models.JourneyStatus) func(*models.Journey) {
	return func(j *models.Journey) {
		j.Status = status
	}
}

// WithSteps replaces the journey steps.
func WithSteps(steps ...*models.JourneyStep) func(*models.Journey) {
	return func(j *models.Journey) {
		j.Steps = steps
	}
}

// CreateTestPolicy creates an organization policy with quiet hours 22:00-08:00.
func CreateTestPolicy(orgID string) *models.OrganizationPolicy {
	start, end := 22*60, 8*60

	return &models.OrganizationPolicy{
		OrganizationID:        orgID,
		Timezone:              "UTC",
		QuietHoursStartMinute: &start,
		QuietHoursEndMinute:   &end,
		CapPerDay:             3,
		CapPerWeek:            10,
		CapPerMonth:           30,
		Approval: models.ApprovalEscalation{
			ReminderAfterMinutes: 60,
			EscalateAfterMinutes: 240,
		},
	}
}
