// Package events defines event types and structures for journey lifecycle notifications.
package events

import (
	"time"

	"github.com/dukex/journey/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic is the Kafka topic carrying every journey event.
const Topic = "journey.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	JourneyPublishedEvent        EventType = "journey.published"
	JourneyRunStartedEvent       EventType = "journey.run.started"
	JourneyActionScheduledEvent  EventType = "journey.action.scheduled"
	JourneyActionSuppressedEvent EventType = "journey.action.suppressed"
	JourneyActionDueEvent        EventType = "journey.action.due"
	JourneyRunCompletedEvent     EventType = "journey.run.completed"
)

type BaseEvent struct {
	ID             string         `json:"id"`
	Type           EventType      `json:"type"`
	Timestamp      time.Time      `json:"timestamp"`
	JourneyID      string         `json:"journey_id"`
	OrganizationID string         `json:"organization_id"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, journeyID, organizationID string) BaseEvent {
	return BaseEvent{
		ID:             uuid.New().String(),
		Type:           eventType,
		Timestamp:      time.Now().UTC(),
		JourneyID:      journeyID,
		OrganizationID: organizationID,
		Metadata:       make(map[string]any),
	}
}

// JourneyPublished is emitted once a draft journey passes publish validation.
type JourneyPublished struct {
	BaseEvent

	Name        string    `json:"name"`
	StepCount   int       `json:"step_count"`
	PublishedAt time.Time `json:"published_at"`
}

func (e JourneyPublished) GetType() EventType {
	return JourneyPublishedEvent
}

// JourneyRunStarted is emitted when a contact enters a journey.
type JourneyRunStarted struct {
	BaseEvent

	RunID     string           `json:"run_id"`
	ContactID string           `json:"contact_id"`
	Status    models.RunStatus `json:"status"`
	Blocked   bool             `json:"blocked"`
}

func (e JourneyRunStarted) GetType() EventType {
	return JourneyRunStartedEvent
}

// JourneyActionScheduled carries an action queued for later dispatch.
type JourneyActionScheduled struct {
	BaseEvent

	RunID     string                 `json:"run_id"`
	ContactID string                 `json:"contact_id"`
	Action    models.ScheduledAction `json:"action"`
}

func (e JourneyActionScheduled) GetType() EventType {
	return JourneyActionScheduledEvent
}

// JourneyActionSuppressed carries an action dropped by a frequency cap.
type JourneyActionSuppressed struct {
	BaseEvent

	RunID     string                 `json:"run_id"`
	ContactID string                 `json:"contact_id"`
	Action    models.ScheduledAction `json:"action"`
	Reason    string                 `json:"reason"`
}

func (e JourneyActionSuppressed) GetType() EventType {
	return JourneyActionSuppressedEvent
}

// JourneyActionDue hands a due action to the delivery side.
type JourneyActionDue struct {
	BaseEvent

	RunID     string                 `json:"run_id"`
	ContactID string                 `json:"contact_id"`
	Action    models.ScheduledAction `json:"action"`
}

func (e JourneyActionDue) GetType() EventType {
	return JourneyActionDueEvent
}

// JourneyRunCompleted is emitted when a run has no action left to dispatch.
type JourneyRunCompleted struct {
	BaseEvent

	RunID       string    `json:"run_id"`
	ContactID   string    `json:"contact_id"`
	CompletedAt time.Time `json:"completed_at"`
}

func (e JourneyRunCompleted) GetType() EventType {
	return JourneyRunCompletedEvent
}
