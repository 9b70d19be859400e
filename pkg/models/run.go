package models

import "time"

// RunStatus represents the lifecycle state of a journey run.
type RunStatus string

const (
	RunStatusActive    RunStatus = "active"    // Has scheduled actions not yet due
	RunStatusCompleted RunStatus = "completed" // Every action dispatched or suppressed
	RunStatusBlocked   RunStatus = "blocked"   // A condition failed, nothing scheduled
)

// ActionStatus represents the state of a scheduled outbound action.
type ActionStatus string

const (
	ActionStatusScheduled  ActionStatus = "scheduled"
	ActionStatusSuppressed ActionStatus = "suppressed"
	ActionStatusDispatched ActionStatus = "dispatched"
)

// JourneyRun is the persisted record of a real (non-simulated) evaluation of a
// journey for one contact.
type JourneyRun struct {
	ID             string             `json:"id"`
	JourneyID      string             `json:"journey_id"`
	OrganizationID string             `json:"organization_id"`
	ContactID      string             `json:"contact_id"`
	Status         RunStatus          `json:"status"`
	Contact        SimulationContact  `json:"contact"`
	Result         SimulationResult   `json:"result"`
	Actions        []*ScheduledAction `json:"actions"`
	CreatedAt      time.Time          `json:"created_at"`
	CompletedAt    *time.Time         `json:"completed_at,omitempty"`
}

// PendingActions counts actions still waiting for dispatch.
func (r *JourneyRun) PendingActions() int {
	count := 0

	for _, action := range r.Actions {
		if action.Status == ActionStatusScheduled {
			count++
		}
	}

	return count
}

// ScheduledAction is a rendered action with its resolved send time.
type ScheduledAction struct {
	ID                   string       `json:"id"`
	RunID                string       `json:"run_id"`
	StepID               string       `json:"step_id"`
	Channel              Channel      `json:"channel"`
	Title                string       `json:"title"`
	Body                 string       `json:"body"`
	CTALabel             string       `json:"cta_label,omitempty"`
	CTAURL               string       `json:"cta_url,omitempty"`
	ScheduledAt          time.Time    `json:"scheduled_at"`
	DeferredByQuietHours bool         `json:"deferred_by_quiet_hours"`
	Status               ActionStatus `json:"status"`
	Reason               string       `json:"reason,omitempty"`
	DispatchedAt         *time.Time   `json:"dispatched_at,omitempty"`
}
