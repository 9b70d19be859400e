package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/dukex/journey/pkg/journey"
	"github.com/dukex/journey/pkg/mocks"
	"github.com/dukex/journey/pkg/models"
	"github.com/dukex/journey/pkg/testutil"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

var errConnectionReset = errors.New("connection reset")

func TestJourney_CreateJourney_SaveFails(t *testing.T) {
	journeys := &mocks.MockJourneyRepository{}
	journeys.On("Save", mock.Anything, mock.Anything).Return(errConnectionReset)

	p := &mocks.MockPersistence{}
	p.On("JourneyRepository").Return(journeys)

	service := NewJourney(p, nil, clockwork.NewFakeClockAt(testNow), slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := service.CreateJourney(context.Background(), &CreateJourneyRequest{
		OrganizationID: "org-1",
		Name:           "Win-back",
	})
	require.ErrorIs(t, err, errConnectionReset)
	assert.False(t, IsValidationError(err))
	assert.False(t, IsNotFoundError(err))
}

func TestExecution_Start_SendHistoryFails(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := clockwork.NewFakeClockAt(testNow)

	published := testutil.CreateTestJourney(func(j *models.Journey) {
		j.Status = models.JourneyStatusPublished
		j.Steps = []*models.JourneyStep{
			testutil.TriggerStep("contact.inactive"),
			testutil.ActionStep(models.ChannelPush),
		}
	})

	journeys := &mocks.MockJourneyRepository{}
	journeys.On("GetByID", mock.Anything, published.ID).Return(published, nil)

	runs := &mocks.MockRunRepository{}
	runs.On("ActiveRun", mock.Anything, published.ID, "contact-1").Return(nil, nil)

	policies := &mocks.MockPolicyRepository{}
	policies.On("Get", mock.Anything, "org-1").Return(testutil.CreateTestPolicy("org-1"), nil)

	p := &mocks.MockPersistence{}
	p.On("JourneyRepository").Return(journeys)
	p.On("RunRepository").Return(runs)
	p.On("PolicyRepository").Return(policies)

	history := &mocks.MockSendHistory{}
	history.On("Count", mock.Anything, "org-1", "contact-1", mock.Anything, mock.Anything).Return(0, errConnectionReset)

	execution := NewExecution(ExecutionDeps{
		Persistence: p,
		Policies:    NewPolicy(p, logger),
		History:     history,
		Runner:      journey.NewRunner(clock),
		Clock:       clock,
		Tracer:      noop.NewTracerProvider().Tracer("test"),
		Logger:      logger,
	})

	_, err := execution.Start(ctx, published.ID, &StartRunRequest{ContactID: "contact-1"})
	require.ErrorIs(t, err, errConnectionReset)

	runs.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	history.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
