package services

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dukex/journey/pkg/journey"
	"github.com/dukex/journey/pkg/mocks"
	"github.com/dukex/journey/pkg/persistence"
	"github.com/dukex/journey/pkg/persistence/file"
	"github.com/dukex/journey/pkg/sendhistory"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/mock"
	"go.opentelemetry.io/otel/trace/noop"
)

var testNow = time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC)

type fixture struct {
	persistence persistence.Persistence
	eventBus    *mocks.MockEventBus
	clock       *clockwork.FakeClock
	history     *sendhistory.Memory
	journeys    *Journey
	policies    *Policy
	simulation  *Simulation
	execution   *Execution
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := file.NewPersistence(t.TempDir())
	clock := clockwork.NewFakeClockAt(testNow)
	runner := journey.NewRunner(clock)
	tracer := noop.NewTracerProvider().Tracer("test")
	history := sendhistory.NewMemory()

	eventBus := &mocks.MockEventBus{}
	eventBus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	policies := NewPolicy(p, logger)

	return &fixture{
		persistence: p,
		eventBus:    eventBus,
		clock:       clock,
		history:     history,
		journeys:    NewJourney(p, eventBus, clock, logger),
		policies:    policies,
		simulation:  NewSimulation(p, policies, runner, tracer, logger),
		execution: NewExecution(ExecutionDeps{
			Persistence: p,
			Policies:    policies,
			History:     history,
			EventBus:    eventBus,
			Runner:      runner,
			Clock:       clock,
			Tracer:      tracer,
			Logger:      logger,
		}),
	}
}
