package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dukex/journey/pkg/eventbus"
	"github.com/dukex/journey/pkg/events"
	"github.com/dukex/journey/pkg/models"
	"github.com/dukex/journey/pkg/persistence"
	"github.com/dukex/journey/pkg/schema"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Journey handles journey authoring: metadata, steps and publishing.
type Journey struct {
	persistence persistence.Persistence
	eventBus    eventbus.EventPublisher
	clock       clockwork.Clock
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewJourney creates a new journey service. eventBus may be nil, in which case no
// events are published.
func NewJourney(persistence persistence.Persistence, eventBus eventbus.EventPublisher, clock clockwork.Clock, logger *slog.Logger) *Journey {
	return &Journey{
		persistence: persistence,
		eventBus:    eventBus,
		clock:       clock,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger.With("module", "journey_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (j *Journey) HealthCheck(ctx context.Context) (string, bool) {
	if j.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := j.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// StepKinds describes the step kinds offered by the composer.
func (j *Journey) StepKinds() []models.StepKindDescriptor {
	return schema.Descriptors()
}

// ListJourneysRequest contains options for listing journeys.
type ListJourneysRequest struct {
	OrganizationID string
	Status         *models.JourneyStatus
	Limit          int
	Offset         int
}

// ListJourneys retrieves journeys with filtering and pagination.
func (j *Journey) ListJourneys(ctx context.Context, req ListJourneysRequest) (*persistence.JourneyListResult, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	if req.Limit > 100 {
		req.Limit = 100
	}

	if req.Offset < 0 {
		req.Offset = 0
	}

	if req.Status != nil && !validStatus(*req.Status) {
		return nil, NewValidationError("ListJourneys", "INVALID_STATUS",
			fmt.Sprintf("invalid status '%s'", *req.Status), ErrInvalidStatus)
	}

	result, err := j.persistence.JourneyRepository().List(ctx, persistence.ListJourneysOptions{
		OrganizationID: req.OrganizationID,
		Status:         req.Status,
		Limit:          req.Limit,
		Offset:         req.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list journeys: %w", err)
	}

	return result, nil
}

// GetJourney returns a journey by ID.
func (j *Journey) GetJourney(ctx context.Context, id string) (*models.Journey, error) {
	journey, err := j.persistence.JourneyRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get journey: %w", err)
	}

	return journey, nil
}

// CreateJourneyRequest is the payload of a new draft journey.
type CreateJourneyRequest struct {
	OrganizationID string                `json:"organization_id" validate:"required"`
	Name           string                `json:"name"            validate:"required,min=3,max=255"`
	Description    string                `json:"description"`
	Steps          []*models.JourneyStep `json:"steps"`
}

// CreateJourney stores a new draft journey. Provided steps are schema-validated and
// get IDs when they have none.
func (j *Journey) CreateJourney(ctx context.Context, req *CreateJourneyRequest) (*models.Journey, error) {
	err := j.validate.Struct(req)
	if err != nil {
		return nil, NewValidationError("CreateJourney", "INVALID_REQUEST", err.Error(), ErrInvalidRequest)
	}

	steps := req.Steps
	if steps == nil {
		steps = make([]*models.JourneyStep, 0)
	}

	for _, step := range steps {
		err = prepareStep(step)
		if err != nil {
			return nil, err
		}
	}

	err = uniqueStepIDs(steps)
	if err != nil {
		return nil, err
	}

	journey := &models.Journey{
		ID:             uuid.NewString(),
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		Description:    req.Description,
		Status:         models.JourneyStatusDraft,
		Steps:          steps,
	}

	err = j.persistence.JourneyRepository().Save(ctx, journey)
	if err != nil {
		return nil, fmt.Errorf("failed to save journey: %w", err)
	}

	j.logger.InfoContext(ctx, "journey created", "journey_id", journey.ID, "organization_id", journey.OrganizationID)

	return journey, nil
}

// UpdateJourneyRequest changes journey metadata. Nil fields are left untouched.
type UpdateJourneyRequest struct {
	Name        *string               `json:"name,omitempty"        validate:"omitempty,min=3,max=255"`
	Description *string               `json:"description,omitempty"`
	Status      *models.JourneyStatus `json:"status,omitempty"`
}

// UpdateJourney edits the name or description of a draft, or archives a journey.
// Publishing goes through PublishJourney.
func (j *Journey) UpdateJourney(ctx context.Context, id string, req *UpdateJourneyRequest) (*models.Journey, error) {
	err := j.validate.Struct(req)
	if err != nil {
		return nil, NewValidationError("UpdateJourney", "INVALID_REQUEST", err.Error(), ErrInvalidRequest)
	}

	journey, err := j.GetJourney(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil || req.Description != nil {
		if !journey.IsEditable() {
			return nil, fmt.Errorf("journey %s is %s: %w", id, journey.Status, ErrJourneyNotEditable)
		}

		if req.Name != nil {
			journey.Name = *req.Name
		}

		if req.Description != nil {
			journey.Description = *req.Description
		}
	}

	if req.Status != nil && *req.Status != journey.Status {
		switch *req.Status {
		case models.JourneyStatusArchived:
			journey.Status = models.JourneyStatusArchived
		case models.JourneyStatusDraft, models.JourneyStatusPublished:
			return nil, fmt.Errorf("cannot move journey from %s to %s: %w", journey.Status, *req.Status, ErrInvalidTransition)
		default:
			return nil, NewValidationError("UpdateJourney", "INVALID_STATUS",
				fmt.Sprintf("invalid status '%s'", *req.Status), ErrInvalidStatus)
		}
	}

	err = j.persistence.JourneyRepository().Save(ctx, journey)
	if err != nil {
		return nil, fmt.Errorf("failed to save journey: %w", err)
	}

	return journey, nil
}

// DeleteJourney removes a draft or archived journey. Published journeys must be
// archived first.
func (j *Journey) DeleteJourney(ctx context.Context, id string) error {
	journey, err := j.GetJourney(ctx, id)
	if err != nil {
		return err
	}

	if journey.Status == models.JourneyStatusPublished {
		return fmt.Errorf("archive journey %s before deleting it: %w", id, ErrInvalidTransition)
	}

	err = j.persistence.JourneyRepository().Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete journey: %w", err)
	}

	return nil
}

// StepRequest is the payload for adding or replacing a step.
type StepRequest struct {
	Kind      models.StepKind         `json:"kind"      validate:"required"`
	Label     string                  `json:"label"     validate:"max=120"`
	Trigger   *models.TriggerConfig   `json:"trigger,omitempty"`
	Condition *models.ConditionConfig `json:"condition,omitempty"`
	Delay     *models.DelayConfig     `json:"delay,omitempty"`
	Action    *models.ActionConfig    `json:"action,omitempty"`
	// Position inserts the new step at the given index; nil appends. Ignored on update.
	Position *int `json:"position,omitempty" validate:"omitempty,min=0"`
}

func (r *StepRequest) toStep(id string) *models.JourneyStep {
	return &models.JourneyStep{
		ID:        id,
		Kind:      r.Kind,
		Label:     r.Label,
		Trigger:   r.Trigger,
		Condition: r.Condition,
		Delay:     r.Delay,
		Action:    r.Action,
	}
}

// AddStep inserts a step into a draft journey.
func (j *Journey) AddStep(ctx context.Context, journeyID string, req *StepRequest) (*models.JourneyStep, error) {
	err := j.validate.Struct(req)
	if err != nil {
		return nil, NewValidationError("AddStep", "INVALID_REQUEST", err.Error(), ErrInvalidRequest)
	}

	journey, err := j.editableJourney(ctx, journeyID)
	if err != nil {
		return nil, err
	}

	step := req.toStep(uuid.NewString())

	err = prepareStep(step)
	if err != nil {
		return nil, err
	}

	position := len(journey.Steps)
	if req.Position != nil && *req.Position < position {
		position = *req.Position
	}

	journey.Steps = slices.Insert(journey.Steps, position, step)

	err = j.persistence.JourneyRepository().Save(ctx, journey)
	if err != nil {
		return nil, fmt.Errorf("failed to save journey: %w", err)
	}

	return step, nil
}

// UpdateStep replaces the kind, label and configuration of a step, keeping its ID
// and position.
func (j *Journey) UpdateStep(ctx context.Context, journeyID, stepID string, req *StepRequest) (*models.JourneyStep, error) {
	err := j.validate.Struct(req)
	if err != nil {
		return nil, NewValidationError("UpdateStep", "INVALID_REQUEST", err.Error(), ErrInvalidRequest)
	}

	journey, err := j.editableJourney(ctx, journeyID)
	if err != nil {
		return nil, err
	}

	index := journey.StepIndex(stepID)
	if index < 0 {
		return nil, fmt.Errorf("%w: %s", ErrStepNotFound, stepID)
	}

	step := req.toStep(stepID)

	err = prepareStep(step)
	if err != nil {
		return nil, err
	}

	journey.Steps[index] = step

	err = j.persistence.JourneyRepository().Save(ctx, journey)
	if err != nil {
		return nil, fmt.Errorf("failed to save journey: %w", err)
	}

	return step, nil
}

// DeleteStep removes a step from a draft journey.
func (j *Journey) DeleteStep(ctx context.Context, journeyID, stepID string) error {
	journey, err := j.editableJourney(ctx, journeyID)
	if err != nil {
		return err
	}

	index := journey.StepIndex(stepID)
	if index < 0 {
		return fmt.Errorf("%w: %s", ErrStepNotFound, stepID)
	}

	journey.Steps = slices.Delete(journey.Steps, index, index+1)

	err = j.persistence.JourneyRepository().Save(ctx, journey)
	if err != nil {
		return fmt.Errorf("failed to save journey: %w", err)
	}

	return nil
}

// ReorderSteps rearranges the steps of a draft journey. stepIDs must be a
// permutation of the current step IDs.
func (j *Journey) ReorderSteps(ctx context.Context, journeyID string, stepIDs []string) (*models.Journey, error) {
	journey, err := j.editableJourney(ctx, journeyID)
	if err != nil {
		return nil, err
	}

	if len(stepIDs) != len(journey.Steps) {
		return nil, NewValidationError("ReorderSteps", "INVALID_STEP_ORDER",
			fmt.Sprintf("expected %d step IDs, got %d", len(journey.Steps), len(stepIDs)), ErrInvalidStepOrder)
	}

	reordered := make([]*models.JourneyStep, 0, len(stepIDs))
	seen := make(map[string]bool, len(stepIDs))

	for _, id := range stepIDs {
		index := journey.StepIndex(id)
		if index < 0 || seen[id] {
			return nil, NewValidationError("ReorderSteps", "INVALID_STEP_ORDER",
				fmt.Sprintf("unknown or repeated step ID '%s'", id), ErrInvalidStepOrder)
		}

		seen[id] = true

		reordered = append(reordered, journey.Steps[index])
	}

	journey.Steps = reordered

	err = j.persistence.JourneyRepository().Save(ctx, journey)
	if err != nil {
		return nil, fmt.Errorf("failed to save journey: %w", err)
	}

	return journey, nil
}

// PublishJourney freezes a draft journey so it can accept real runs.
func (j *Journey) PublishJourney(ctx context.Context, id string) (*models.Journey, error) {
	journey, err := j.editableJourney(ctx, id)
	if err != nil {
		return nil, err
	}

	err = ValidateForPublishing(journey)
	if err != nil {
		return nil, err
	}

	now := j.clock.Now().UTC()
	journey.Status = models.JourneyStatusPublished
	journey.PublishedAt = &now

	err = j.persistence.JourneyRepository().Save(ctx, journey)
	if err != nil {
		return nil, fmt.Errorf("failed to publish journey: %w", err)
	}

	j.publish(ctx, journey.ID, events.JourneyPublished{
		BaseEvent:   events.NewBaseEvent(events.JourneyPublishedEvent, journey.ID, journey.OrganizationID),
		Name:        journey.Name,
		StepCount:   len(journey.Steps),
		PublishedAt: now,
	})

	j.logger.InfoContext(ctx, "journey published", "journey_id", journey.ID, "steps", len(journey.Steps))

	return journey, nil
}

// ValidateForPublishing ensures a journey is ready to be published: it starts with
// a TRIGGER, sends at least one ACTION and every step matches its schema.
func ValidateForPublishing(journey *models.Journey) error {
	if journey.Name == "" {
		return ErrJourneyNameRequired
	}

	if len(journey.Steps) == 0 {
		return ErrStepsRequired
	}

	if journey.Steps[0].Kind != models.StepKindTrigger {
		return ErrTriggerMustBeFirst
	}

	hasAction := false

	for _, step := range journey.Steps {
		err := validateStep(step)
		if err != nil {
			return err
		}

		if step.Kind == models.StepKindAction {
			hasAction = true
		}
	}

	if !hasAction {
		return ErrActionRequired
	}

	return uniqueStepIDs(journey.Steps)
}

func (j *Journey) editableJourney(ctx context.Context, id string) (*models.Journey, error) {
	journey, err := j.GetJourney(ctx, id)
	if err != nil {
		return nil, err
	}

	if !journey.IsEditable() {
		return nil, fmt.Errorf("journey %s is %s: %w", id, journey.Status, ErrJourneyNotEditable)
	}

	return journey, nil
}

func (j *Journey) publish(ctx context.Context, key string, event eventbus.Event) {
	if j.eventBus == nil {
		return
	}

	err := j.eventBus.Publish(ctx, key, event)
	if err != nil {
		j.logger.ErrorContext(ctx, "failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

// prepareStep assigns a missing ID and validates the step configuration.
func prepareStep(step *models.JourneyStep) error {
	if step == nil {
		return NewValidationError("prepareStep", "INVALID_STEP", "step cannot be null", ErrInvalidStep)
	}

	if step.ID == "" {
		step.ID = uuid.NewString()
	}

	return validateStep(step)
}

func validateStep(step *models.JourneyStep) error {
	err := schema.ValidateStep(step)
	if err != nil {
		return NewValidationError("validateStep", "INVALID_STEP", err.Error(), ErrInvalidStep)
	}

	return nil
}

func uniqueStepIDs(steps []*models.JourneyStep) error {
	seen := make(map[string]bool, len(steps))

	for _, step := range steps {
		if seen[step.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateStepID, step.ID)
		}

		seen[step.ID] = true
	}

	return nil
}

func validStatus(status models.JourneyStatus) bool {
	switch status {
	case models.JourneyStatusDraft, models.JourneyStatusPublished, models.JourneyStatusArchived:
		return true
	default:
		return false
	}
}
