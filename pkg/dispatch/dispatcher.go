// Package dispatch hands due journey actions to the delivery side on a schedule.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/journey/pkg/eventbus"
	"github.com/dukex/journey/pkg/events"
	"github.com/dukex/journey/pkg/models"
	"github.com/dukex/journey/pkg/otelhelper"
	"github.com/dukex/journey/pkg/persistence"
	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultSchedule  = "@every 1m"
	DefaultBatchSize = 100
)

var ErrAlreadyStarted = errors.New("dispatcher already started")

// Dispatcher sweeps scheduled actions whose time has come, publishes a
// journey.action.due event for each and completes runs with nothing left to send.
type Dispatcher struct {
	persistence persistence.Persistence
	eventBus    eventbus.EventPublisher
	clock       clockwork.Clock
	tracer      trace.Tracer
	logger      *slog.Logger
	schedule    string
	batchSize   int

	mu   sync.Mutex
	cron *cron.Cron
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSchedule sets the cron spec of the sweep.
func WithSchedule(spec string) Option {
	return func(d *Dispatcher) {
		d.schedule = spec
	}
}

// WithBatchSize bounds how many due actions one tick handles.
func WithBatchSize(size int) Option {
	return func(d *Dispatcher) {
		if size > 0 {
			d.batchSize = size
		}
	}
}

func NewDispatcher(persistence persistence.Persistence, eventBus eventbus.EventPublisher, clock clockwork.Clock, tracer trace.Tracer, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		persistence: persistence,
		eventBus:    eventBus,
		clock:       clock,
		tracer:      tracer,
		logger:      logger.With("module", "dispatcher"),
		schedule:    DefaultSchedule,
		batchSize:   DefaultBatchSize,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Start registers the sweep with cron and starts it. Ticks stop when ctx is done
// or Stop is called.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cron != nil {
		return ErrAlreadyStarted
	}

	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := c.AddFunc(d.schedule, func() {
		if ctx.Err() != nil {
			return
		}

		_, err := d.Tick(ctx)
		if err != nil {
			d.logger.ErrorContext(ctx, "dispatch tick failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid dispatch schedule '%s': %w", d.schedule, err)
	}

	c.Start()
	d.cron = c

	d.logger.InfoContext(ctx, "dispatcher started", "schedule", d.schedule, "batch_size", d.batchSize)

	return nil
}

// Stop halts the cron scheduler and waits for a running tick to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	c := d.cron
	d.cron = nil
	d.mu.Unlock()

	if c == nil {
		return
	}

	<-c.Stop().Done()

	d.logger.Info("dispatcher stopped")
}

// Tick dispatches every action due at the current clock time and returns how many
// were dispatched.
func (d *Dispatcher) Tick(ctx context.Context) (int, error) {
	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "journey.dispatch.tick")
	defer span.End()

	now := d.clock.Now().UTC()

	due, err := d.persistence.RunRepository().DueActions(ctx, now, d.batchSize)
	if err != nil {
		otelhelper.SetError(span, err)

		return 0, fmt.Errorf("failed to load due actions: %w", err)
	}

	span.SetAttributes(attribute.Int(otelhelper.DueActionsKey, len(due)))

	dispatched := 0
	touched := make([]string, 0)
	seen := make(map[string]bool)

	for _, action := range due {
		err = d.dispatch(ctx, action, now)
		if err != nil {
			d.logger.ErrorContext(ctx, "failed to dispatch action", "action_id", action.ID, "run_id", action.RunID, "error", err)

			continue
		}

		dispatched++

		if !seen[action.RunID] {
			seen[action.RunID] = true
			touched = append(touched, action.RunID)
		}
	}

	for _, runID := range touched {
		err = d.completeIfDone(ctx, runID, now)
		if err != nil {
			d.logger.ErrorContext(ctx, "failed to complete run", "run_id", runID, "error", err)
		}
	}

	if dispatched > 0 {
		d.logger.InfoContext(ctx, "dispatched due actions", "dispatched", dispatched, "runs", len(touched))
	}

	return dispatched, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, action *models.ScheduledAction, now time.Time) error {
	run, err := d.persistence.RunRepository().GetByID(ctx, action.RunID)
	if err != nil {
		return err
	}

	err = d.eventBus.Publish(ctx, run.ID, events.JourneyActionDue{
		BaseEvent: events.NewBaseEvent(events.JourneyActionDueEvent, run.JourneyID, run.OrganizationID),
		RunID:     run.ID,
		ContactID: run.ContactID,
		Action:    *action,
	})
	if err != nil {
		return fmt.Errorf("failed to publish due action: %w", err)
	}

	return d.persistence.RunRepository().MarkDispatched(ctx, action.ID, now)
}

func (d *Dispatcher) completeIfDone(ctx context.Context, runID string, now time.Time) error {
	run, err := d.persistence.RunRepository().GetByID(ctx, runID)
	if err != nil {
		return err
	}

	if run.Status != models.RunStatusActive || run.PendingActions() > 0 {
		return nil
	}

	run.Status = models.RunStatusCompleted
	run.CompletedAt = &now

	err = d.persistence.RunRepository().Save(ctx, run)
	if err != nil {
		return err
	}

	return d.eventBus.Publish(ctx, run.ID, events.JourneyRunCompleted{
		BaseEvent:   events.NewBaseEvent(events.JourneyRunCompletedEvent, run.JourneyID, run.OrganizationID),
		RunID:       run.ID,
		ContactID:   run.ContactID,
		CompletedAt: now,
	})
}
