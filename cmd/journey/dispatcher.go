package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/journey/pkg/cmd"
	"github.com/dukex/journey/pkg/dispatch"
	"github.com/dukex/journey/pkg/eventbus"
	"github.com/dukex/journey/pkg/events"
	"github.com/dukex/journey/pkg/log"
	"github.com/dukex/journey/pkg/otelhelper"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	cli "github.com/urfave/cli/v3"
)

func NewDispatcherCommand() *cli.Command {
	return &cli.Command{
		Name:    "dispatcher",
		Aliases: []string{"d"},
		Usage:   "Sweep due journey actions and publish them for delivery",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dispatcher-id",
				Aliases: []string{"id"},
				Usage:   "Custom dispatcher ID (auto-generated if not provided)",
				Sources: cli.EnvVars("DISPATCHER_ID"),
			},
			&cli.IntFlag{
				Name:    "batch-size",
				Usage:   "Maximum number of due actions dispatched per sweep",
				Value:   dispatch.DefaultBatchSize,
				Sources: cli.EnvVars("DISPATCH_BATCH_SIZE"),
			},
			databaseURLFlag(),
			eventBusFlag(),
			scheduleFlag(),
			logLevelFlag(),
			otelFlag(),
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			dispatcherID := command.String("dispatcher-id")
			if dispatcherID == "" {
				dispatcherID = "dispatcher-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("dispatcher").With("dispatcher_id", dispatcherID)

			logger.InfoContext(ctx, "Initializing Journey Dispatcher")

			tracer, shutdown, err := otelhelper.NewTracer(ctx, "journey-dispatcher", command.Bool("otel"))
			if err != nil {
				return fmt.Errorf("failed to initialize tracer: %w", err)
			}

			defer func() {
				if err := shutdown(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
				}
			}()

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return fmt.Errorf("failed to initialize persistence: %w", err)
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), "journey-dispatcher", logger)
			if err != nil {
				return fmt.Errorf("failed to initialize event bus: %w", err)
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			err = logDueActions(ctx, eventBus, logger)
			if err != nil {
				return err
			}

			dispatcher := dispatch.NewDispatcher(persistence, eventBus, clockwork.NewRealClock(), tracer, logger,
				dispatch.WithSchedule(command.String("schedule")),
				dispatch.WithBatchSize(int(command.Int("batch-size"))),
			)

			err = dispatcher.Start(ctx)
			if err != nil {
				return err
			}

			waitForSignal(ctx, logger)
			dispatcher.Stop()

			return nil
		},
	}
}

// logDueActions subscribes to due actions so deliveries are visible in the
// dispatcher logs.
func logDueActions(ctx context.Context, eventBus eventbus.EventBus, logger *slog.Logger) error {
	err := eventBus.Handle(events.JourneyActionDueEvent, func(ctx context.Context, event any) error {
		due, ok := event.(*events.JourneyActionDue)
		if !ok {
			return fmt.Errorf("unexpected event %T", event)
		}

		logger.InfoContext(ctx, "Action due for delivery",
			"journey_id", due.JourneyID,
			"run_id", due.RunID,
			"contact_id", due.ContactID,
			"action_id", due.Action.ID,
			"channel", due.Action.Channel)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to register due action handler: %w", err)
	}

	err = eventBus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to journey events: %w", err)
	}

	return nil
}

func waitForSignal(ctx context.Context, logger *slog.Logger) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	defer signal.Stop(signals)

	select {
	case sig := <-signals:
		logger.InfoContext(ctx, "Received signal, shutting down gracefully", "signal", sig)
	case <-ctx.Done():
	}
}
