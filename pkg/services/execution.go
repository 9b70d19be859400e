package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/journey/pkg/eventbus"
	"github.com/dukex/journey/pkg/events"
	"github.com/dukex/journey/pkg/journey"
	"github.com/dukex/journey/pkg/models"
	"github.com/dukex/journey/pkg/otelhelper"
	"github.com/dukex/journey/pkg/persistence"
	"github.com/dukex/journey/pkg/sendhistory"
	"github.com/dukex/journey/pkg/template"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Execution starts real journey runs: it evaluates a published journey for a
// contact, enforces frequency caps against the send history and persists the
// scheduled actions for the dispatcher.
type Execution struct {
	persistence persistence.Persistence
	policies    *Policy
	history     sendhistory.History
	eventBus    eventbus.EventPublisher
	runner      *journey.Runner
	clock       clockwork.Clock
	tracer      trace.Tracer
	logger      *slog.Logger
}

// ExecutionDeps groups the collaborators of the execution service.
type ExecutionDeps struct {
	Persistence persistence.Persistence
	Policies    *Policy
	History     sendhistory.History
	EventBus    eventbus.EventPublisher
	Runner      *journey.Runner
	Clock       clockwork.Clock
	Tracer      trace.Tracer
	Logger      *slog.Logger
}

// NewExecution creates a new execution service.
func NewExecution(deps ExecutionDeps) *Execution {
	return &Execution{
		persistence: deps.Persistence,
		policies:    deps.Policies,
		history:     deps.History,
		eventBus:    deps.EventBus,
		runner:      deps.Runner,
		clock:       deps.Clock,
		tracer:      deps.Tracer,
		logger:      deps.Logger.With("module", "execution_service"),
	}
}

// StartRunRequest identifies the contact entering the journey.
type StartRunRequest struct {
	ContactID string                   `json:"contact_id"`
	Contact   models.SimulationContact `json:"contact"`
}

// Start evaluates a published journey for a contact and persists the resulting run.
// A contact can only have one active run per journey.
func (e *Execution) Start(ctx context.Context, journeyID string, req *StartRunRequest) (*models.JourneyRun, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "journey.run.start",
		attribute.String(otelhelper.JourneyIDKey, journeyID),
		attribute.String(otelhelper.ContactIDKey, req.ContactID))
	defer span.End()

	run, err := e.start(ctx, journeyID, req)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(
		attribute.String(otelhelper.RunIDKey, run.ID),
		attribute.Int(otelhelper.SentActionsKey, run.Result.SentActions),
		attribute.Bool(otelhelper.BlockedKey, run.Result.Blocked),
	)

	return run, nil
}

func (e *Execution) start(ctx context.Context, journeyID string, req *StartRunRequest) (*models.JourneyRun, error) {
	if req.ContactID == "" {
		return nil, ErrContactIDRequired
	}

	stored, err := e.persistence.JourneyRepository().GetByID(ctx, journeyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get journey: %w", err)
	}

	if stored.Status != models.JourneyStatusPublished {
		return nil, fmt.Errorf("journey %s is %s: %w", journeyID, stored.Status, ErrJourneyNotPublished)
	}

	active, err := e.persistence.RunRepository().ActiveRun(ctx, journeyID, req.ContactID)
	if err != nil {
		return nil, fmt.Errorf("failed to check active runs: %w", err)
	}

	if active != nil {
		return nil, fmt.Errorf("run %s: %w", active.ID, ErrActiveRunExists)
	}

	policy, err := e.policies.EffectivePolicy(ctx, stored.OrganizationID)
	if err != nil {
		return nil, err
	}

	result := e.runner.Run(stored.Steps, req.Contact, policy)

	run := &models.JourneyRun{
		ID:             uuid.NewString(),
		JourneyID:      stored.ID,
		OrganizationID: stored.OrganizationID,
		ContactID:      req.ContactID,
		Contact:        req.Contact,
		Actions:        make([]*models.ScheduledAction, 0),
		CreatedAt:      e.clock.Now().UTC(),
	}

	err = e.scheduleActions(ctx, stored, run, &result, policy)
	if err != nil {
		return nil, err
	}

	run.Result = result
	run.Status = runStatus(run)

	if run.Status != models.RunStatusActive {
		completedAt := run.CreatedAt
		run.CompletedAt = &completedAt
	}

	// A concurrent start for the same contact can pass the check above; the
	// repository rejects the second active run.
	err = e.persistence.RunRepository().Save(ctx, run)
	if persistence.IsActiveRunConflict(err) {
		return nil, fmt.Errorf("contact %s: %w", run.ContactID, ErrActiveRunExists)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to save run: %w", err)
	}

	for _, action := range run.Actions {
		if action.Status != models.ActionStatusScheduled {
			continue
		}

		err = e.history.Record(ctx, run.OrganizationID, run.ContactID, action.ScheduledAt)
		if err != nil {
			e.logger.ErrorContext(ctx, "failed to record send", "run_id", run.ID, "action_id", action.ID, "error", err)
		}
	}

	e.publishRunEvents(ctx, run)

	e.logger.InfoContext(ctx, "journey run started",
		"journey_id", run.JourneyID,
		"run_id", run.ID,
		"contact_id", run.ContactID,
		"status", run.Status,
		"scheduled", run.PendingActions())

	return run, nil
}

// scheduleActions turns the PASSED action results into scheduled actions. An action
// that would push the contact over a cap window, counting the send history and the
// earlier actions of this run, is suppressed and its step result marked FAILED.
func (e *Execution) scheduleActions(ctx context.Context, stored *models.Journey, run *models.JourneyRun, result *models.SimulationResult, policy *models.OrganizationPolicy) error {
	data := template.ActionData(stored, run.ContactID, run.Contact)
	windows := journey.CapWindows(policy)
	scheduled := make([]time.Time, 0)

	for i := range result.StepResults {
		stepResult := &result.StepResults[i]
		if stepResult.Kind != models.StepKindAction || stepResult.Status != models.StepStatusPassed || stepResult.ScheduledAt == nil {
			continue
		}

		index := stored.StepIndex(stepResult.StepID)
		if index < 0 || stored.Steps[index].Action == nil {
			continue
		}

		content, err := template.RenderAction(*stored.Steps[index].Action, data)
		if err != nil {
			e.logger.WarnContext(ctx, "failed to render action, sending raw content", "step_id", stepResult.StepID, "error", err)
		}

		action := &models.ScheduledAction{
			ID:                   uuid.NewString(),
			RunID:                run.ID,
			StepID:               stepResult.StepID,
			Channel:              content.Channel,
			Title:                content.Title,
			Body:                 content.Body,
			CTALabel:             content.CTALabel,
			CTAURL:               content.CTAURL,
			ScheduledAt:          stepResult.ScheduledAt.UTC(),
			DeferredByQuietHours: stepResult.DeferredByQuietHours,
			Status:               models.ActionStatusScheduled,
		}

		window, exceeded, err := e.exceededWindow(ctx, run, windows, scheduled, action.ScheduledAt)
		if err != nil {
			return err
		}

		if exceeded {
			action.Status = models.ActionStatusSuppressed
			action.Reason = "frequency cap reached: " + window.String()

			stepResult.Status = models.StepStatusFailed
			stepResult.Detail += "; suppressed, frequency cap " + window.String() + " reached"

			result.SentActions--
			result.CapBlocked = true

			if stepResult.DeferredByQuietHours {
				result.SuppressedByQuietHours--
			}
		} else {
			scheduled = append(scheduled, action.ScheduledAt)
		}

		run.Actions = append(run.Actions, action)
	}

	return nil
}

// exceededWindow reports the first cap window that an action at the given time would
// overflow. Every rolling window containing at is covered by counting the sends less
// than one window away on either side, including sends already scheduled later.
func (e *Execution) exceededWindow(ctx context.Context, run *models.JourneyRun, windows []journey.CapWindow, scheduled []time.Time, at time.Time) (journey.CapWindow, bool, error) {
	for _, window := range windows {
		from := at.Add(-window.Duration)
		to := at.Add(window.Duration - time.Nanosecond)

		sent, err := e.history.Count(ctx, run.OrganizationID, run.ContactID, from, to)
		if err != nil {
			return journey.CapWindow{}, false, fmt.Errorf("failed to count sends: %w", err)
		}

		for _, t := range scheduled {
			if t.After(from) && !t.After(to) {
				sent++
			}
		}

		if sent+1 > window.Limit {
			return window, true, nil
		}
	}

	return journey.CapWindow{}, false, nil
}

func runStatus(run *models.JourneyRun) models.RunStatus {
	if run.PendingActions() > 0 {
		return models.RunStatusActive
	}

	if run.Result.Blocked {
		return models.RunStatusBlocked
	}

	return models.RunStatusCompleted
}

func (e *Execution) publishRunEvents(ctx context.Context, run *models.JourneyRun) {
	if e.eventBus == nil {
		return
	}

	base := func(eventType events.EventType) events.BaseEvent {
		return events.NewBaseEvent(eventType, run.JourneyID, run.OrganizationID)
	}

	toPublish := []eventbus.Event{
		events.JourneyRunStarted{
			BaseEvent: base(events.JourneyRunStartedEvent),
			RunID:     run.ID,
			ContactID: run.ContactID,
			Status:    run.Status,
			Blocked:   run.Result.Blocked,
		},
	}

	for _, action := range run.Actions {
		if action.Status == models.ActionStatusSuppressed {
			toPublish = append(toPublish, events.JourneyActionSuppressed{
				BaseEvent: base(events.JourneyActionSuppressedEvent),
				RunID:     run.ID,
				ContactID: run.ContactID,
				Action:    *action,
				Reason:    action.Reason,
			})

			continue
		}

		toPublish = append(toPublish, events.JourneyActionScheduled{
			BaseEvent: base(events.JourneyActionScheduledEvent),
			RunID:     run.ID,
			ContactID: run.ContactID,
			Action:    *action,
		})
	}

	if run.Status == models.RunStatusCompleted {
		toPublish = append(toPublish, events.JourneyRunCompleted{
			BaseEvent:   base(events.JourneyRunCompletedEvent),
			RunID:       run.ID,
			ContactID:   run.ContactID,
			CompletedAt: *run.CompletedAt,
		})
	}

	for _, event := range toPublish {
		err := e.eventBus.Publish(ctx, run.ID, event)
		if err != nil {
			e.logger.ErrorContext(ctx, "failed to publish event", "event_type", event.GetType(), "run_id", run.ID, "error", err)
		}
	}
}

// GetRun returns a run with its scheduled actions.
func (e *Execution) GetRun(ctx context.Context, runID string) (*models.JourneyRun, error) {
	run, err := e.persistence.RunRepository().GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

// ListRuns returns the newest runs of a journey.
func (e *Execution) ListRuns(ctx context.Context, journeyID string, limit int) ([]*models.JourneyRun, error) {
	_, err := e.persistence.JourneyRepository().GetByID(ctx, journeyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get journey: %w", err)
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	runs, err := e.persistence.RunRepository().ListByJourney(ctx, journeyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	return runs, nil
}
