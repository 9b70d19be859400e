package services

import (
	"context"
	"testing"
	"time"

	"github.com/dukex/journey/pkg/models"
	"github.com/dukex/journey/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulation_Simulate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draft := createDraft(t, f)

	result, err := f.simulation.Simulate(ctx, draft.ID, &SimulateRequest{
		Contact: models.SimulationContact{LastActivityDays: "14"},
	})
	require.NoError(t, err)
	assert.False(t, result.Blocked)
	assert.Equal(t, 1, result.SentActions)
	require.NotNil(t, result.StepResults[3].ScheduledAt)
	assert.Equal(t, testNow.Add(time.Hour), *result.StepResults[3].ScheduledAt)

	blocked, err := f.simulation.Simulate(ctx, draft.ID, &SimulateRequest{
		Contact: models.SimulationContact{LastActivityDays: "45"},
	})
	require.NoError(t, err)
	assert.True(t, blocked.Blocked)
	assert.Equal(t, models.StepStatusPending, blocked.StepResults[3].Status)

	runs, err := f.persistence.RunRepository().ListByJourney(ctx, draft.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestSimulation_UsesStoredPolicyUnlessOverridden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draft := createDraft(t, f)
	f.clock.Advance(12 * time.Hour) // 22:00 UTC, inside the stored quiet window

	require.NoError(t, f.persistence.PolicyRepository().Save(ctx, testutil.CreateTestPolicy("org-1")))

	deferred, err := f.simulation.Simulate(ctx, draft.ID, &SimulateRequest{
		Contact: models.SimulationContact{LastActivityDays: "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, deferred.SuppressedByQuietHours)
	assert.Equal(t, time.Date(2025, time.March, 11, 8, 0, 0, 0, time.UTC), deferred.StepResults[3].ScheduledAt.UTC())

	immediate, err := f.simulation.Simulate(ctx, draft.ID, &SimulateRequest{
		Contact: models.SimulationContact{LastActivityDays: "1"},
		Policy:  &models.OrganizationPolicy{Timezone: "UTC"},
	})
	require.NoError(t, err)
	assert.Zero(t, immediate.SuppressedByQuietHours)

	_, err = f.simulation.Simulate(ctx, draft.ID, &SimulateRequest{
		Policy: &models.OrganizationPolicy{Timezone: "Nowhere/Atlantis"},
	})
	assert.ErrorIs(t, err, ErrInvalidPolicyOverride)
	assert.True(t, IsValidationError(err))
}

func TestSimulation_Preview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.simulation.Preview(ctx, &PreviewRequest{
		OrganizationID: "org-1",
		Steps: []*models.JourneyStep{
			testutil.TriggerStep("order.completed"),
			testutil.ConditionStep(models.FieldTotalSpentCents, models.OperatorGte, "5000"),
			testutil.ActionStep(models.ChannelEmail),
		},
		Contact: models.SimulationContact{TotalSpentCents: "12000"},
	})
	require.NoError(t, err)
	assert.False(t, result.Blocked)
	assert.Equal(t, 1, result.SentActions)

	_, err = f.simulation.Preview(ctx, &PreviewRequest{})
	assert.ErrorIs(t, err, ErrOrganizationRequired)

	_, err = f.simulation.Simulate(ctx, "missing", &SimulateRequest{})
	assert.True(t, IsNotFoundError(err))
}
