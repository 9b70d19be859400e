package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/dukex/journey/pkg/cmd"
	"github.com/dukex/journey/pkg/eventbus"
	"github.com/dukex/journey/pkg/journey"
	"github.com/dukex/journey/pkg/log"
	"github.com/dukex/journey/pkg/otelhelper"
	"github.com/dukex/journey/pkg/persistence"
	"github.com/dukex/journey/pkg/sendhistory"
	"github.com/dukex/journey/pkg/services"
	"github.com/dukex/journey/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/jonboulle/clockwork"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

const defaultPort = 9091

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	history     sendhistory.History
	eventBus    eventbus.EventPublisher
	clock       clockwork.Clock
	tracer      trace.Tracer
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	history sendhistory.History,
	eventBus eventbus.EventPublisher,
	clock clockwork.Clock,
	tracer trace.Tracer,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		history:     history,
		eventBus:    eventBus,
		clock:       clock,
		tracer:      tracer,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	runner := journey.NewRunner(a.clock)

	journeyService := services.NewJourney(a.persistence, a.eventBus, a.clock, a.logger)
	policyService := services.NewPolicy(a.persistence, a.logger)
	simulationService := services.NewSimulation(a.persistence, policyService, runner, a.tracer, a.logger)
	executionService := services.NewExecution(services.ExecutionDeps{
		Persistence: a.persistence,
		Policies:    policyService,
		History:     a.history,
		EventBus:    a.eventBus,
		Runner:      runner,
		Clock:       a.clock,
		Tracer:      a.tracer,
		Logger:      a.logger,
	})

	handlers := web.NewAPIHandlers(journeyService, policyService, simulationService, executionService, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Journey API")
	})

	handlers.RegisterRoutes(app)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}

func NewAPICommand() *cli.Command {
	return &cli.Command{
		Name:    "api",
		Aliases: []string{"a"},
		Usage:   "Start the journey REST API",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			databaseURLFlag(),
			eventBusFlag(),
			sendHistoryFlag(),
			logLevelFlag(),
			otelFlag(),
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("api")

			logger.InfoContext(ctx, "Initializing Journey API")

			tracer, shutdown, err := otelhelper.NewTracer(ctx, "journey-api", command.Bool("otel"))
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

			history, err := cmd.NewSendHistory(ctx, command.String("send-history-url"))
			if err != nil {
				return fmt.Errorf("failed to initialize send history: %w", err)
			}

			defer func() {
				if err := history.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close send history", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), "journey-api", logger)
			if err != nil {
				return fmt.Errorf("failed to initialize event bus: %w", err)
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			api := NewAPI(logger, persistence, history, eventBus, clockwork.NewRealClock(), tracer)

			return api.Start(int(command.Int("port")))
		},
	}
}
