package journey_test

import (
	"testing"
	"time"

	"github.com/dukex/journey/pkg/journey"
	"github.com/dukex/journey/pkg/models"
	"github.com/dukex/journey/pkg/testutil"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reengagementSteps() []*models.JourneyStep {
	return []*models.JourneyStep{
		testutil.ConditionStep("lastActivityAt", "gte", "30d"),
		testutil.DelayStep(60),
		testutil.ActionStep(models.ChannelInApp),
	}
}

func TestRunner_ConditionPassesAndActionIsScheduled(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC)
	runner := journey.NewRunner(clockwork.NewFakeClockAt(now))

	result := runner.Run(reengagementSteps(), models.SimulationContact{LastActivityDays: "14"}, nil)

	require.Len(t, result.StepResults, 3)
	assert.False(t, result.Blocked)
	assert.Equal(t, models.StepStatusPassed, result.StepResults[0].Status)
	assert.Equal(t, models.StepStatusPassed, result.StepResults[1].Status)
	assert.Equal(t, 60, result.StepResults[1].OffsetMinutes)
	assert.Equal(t, models.StepStatusPassed, result.StepResults[2].Status)
	assert.Equal(t, models.ChannelInApp, result.StepResults[2].Channel)
	require.NotNil(t, result.StepResults[2].ScheduledAt)
	assert.Equal(t, now.Add(60*time.Minute), *result.StepResults[2].ScheduledAt)
	assert.Equal(t, 1, result.SentActions)
	assert.Equal(t, 0, result.SuppressedByQuietHours)
	assert.False(t, result.CapBlocked)
	assert.Equal(t, now, result.EvaluatedAt)
}

func TestRunner_FailedConditionBlocksRemainingSteps(t *testing.T) {
	t.Parallel()

	runner := journey.NewRunner(clockwork.NewFakeClock())

	result := runner.Run(reengagementSteps(), models.SimulationContact{LastActivityDays: "45"}, nil)

	require.Len(t, result.StepResults, 3)
	assert.True(t, result.Blocked)
	assert.Equal(t, models.StepStatusFailed, result.StepResults[0].Status)
	assert.Equal(t, models.StepStatusPending, result.StepResults[1].Status)
	assert.Equal(t, models.StepStatusPending, result.StepResults[2].Status)
	assert.Nil(t, result.StepResults[2].ScheduledAt)
	assert.Equal(t, 0, result.SentActions)
}

func TestRunner_NothingAfterFailureIsEvaluated(t *testing.T) {
	t.Parallel()

	steps := []*models.JourneyStep{
		testutil.TriggerStep("contact.created"),
		testutil.ConditionStep("marketingOptIn", "eq", "true"),
		testutil.ConditionStep("tag", "in", "padel"),
		testutil.DelayStep(10),
		testutil.ActionStep(models.ChannelEmail),
		testutil.ConditionStep("contactType", "in", "vip"),
	}

	result := journey.NewRunner(clockwork.NewFakeClock()).Run(steps, models.SimulationContact{MarketingOptIn: true, Tags: "tennis"}, nil)

	require.Len(t, result.StepResults, len(steps))

	failedAt := -1

	for i, stepResult := range result.StepResults {
		if failedAt >= 0 {
			assert.Equal(t, models.StepStatusPending, stepResult.Status, "step %d", i)

			continue
		}

		if stepResult.Status == models.StepStatusFailed {
			failedAt = i
		}
	}

	assert.Equal(t, 2, failedAt)
	assert.Equal(t, models.StepStatusPassed, result.StepResults[0].Status)
	assert.Equal(t, "journey entered on contact.created", result.StepResults[0].Detail)
}

func TestRunner_DelayOffsetsAreMonotonic(t *testing.T) {
	t.Parallel()

	steps := []*models.JourneyStep{
		testutil.DelayStep(30),
		testutil.DelayStep(0),
		testutil.DelayStep(-15),
		testutil.ActionStep(models.ChannelPush),
		testutil.DelayStep(120),
		testutil.ActionStep(models.ChannelSMS),
	}

	now := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	result := journey.NewRunner(clockwork.NewFakeClockAt(now)).Run(steps, models.SimulationContact{}, nil)

	previous := 0
	for _, stepResult := range result.StepResults {
		assert.GreaterOrEqual(t, stepResult.OffsetMinutes, previous)
		previous = stepResult.OffsetMinutes
	}

	assert.Equal(t, 32, result.StepResults[3].OffsetMinutes)
	assert.Equal(t, now.Add(32*time.Minute), *result.StepResults[3].ScheduledAt)
	assert.Equal(t, now.Add(152*time.Minute), *result.StepResults[5].ScheduledAt)
	assert.Equal(t, 2, result.SentActions)
}

func TestRunner_QuietHoursDeferAction(t *testing.T) {
	t.Parallel()

	start, end := 1320, 480
	policy := &models.OrganizationPolicy{QuietHoursStartMinute: &start, QuietHoursEndMinute: &end}

	now := time.Date(2025, time.March, 10, 22, 0, 0, 0, time.UTC)
	result := journey.NewRunner(clockwork.NewFakeClockAt(now)).Run(reengagementSteps(), models.SimulationContact{LastActivityDays: "1"}, policy)

	action := result.StepResults[2]
	require.NotNil(t, action.ScheduledAt)
	assert.True(t, action.DeferredByQuietHours)
	assert.Equal(t, time.Date(2025, time.March, 11, 8, 0, 0, 0, time.UTC), *action.ScheduledAt)
	assert.Contains(t, action.Detail, "deferred by quiet hours")
	assert.Equal(t, 1, result.SentActions)
	assert.Equal(t, 1, result.SuppressedByQuietHours)
}

func TestRunner_CapBlocked(t *testing.T) {
	t.Parallel()

	steps := []*models.JourneyStep{
		testutil.ActionStep(models.ChannelPush),
		testutil.ActionStep(models.ChannelPush),
		testutil.ActionStep(models.ChannelEmail),
	}

	tests := []struct {
		name     string
		policy   *models.OrganizationPolicy
		expected bool
	}{
		{name: "no policy", policy: nil, expected: false},
		{name: "zero caps are unlimited", policy: &models.OrganizationPolicy{}, expected: false},
		{name: "day cap exceeded", policy: &models.OrganizationPolicy{CapPerDay: 2}, expected: true},
		{name: "week cap equal is fine", policy: &models.OrganizationPolicy{CapPerWeek: 3}, expected: false},
		{name: "month cap exceeded", policy: &models.OrganizationPolicy{CapPerDay: 5, CapPerMonth: 1}, expected: true},
	}

	runner := journey.NewRunner(clockwork.NewFakeClockAt(time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := runner.Run(steps, models.SimulationContact{}, tt.policy)
			assert.Equal(t, 3, result.SentActions)
			assert.Equal(t, tt.expected, result.CapBlocked)
		})
	}
}

func TestRunner_MalformedStepsAreReported(t *testing.T) {
	t.Parallel()

	steps := []*models.JourneyStep{
		{ID: "a1", Kind: models.StepKindAction},
		{ID: "x1", Kind: "LOOP"},
		{ID: "c1", Kind: models.StepKindCondition},
	}

	result := journey.NewRunner(clockwork.NewFakeClock()).Run(steps, models.SimulationContact{}, nil)

	require.Len(t, result.StepResults, 3)
	assert.Equal(t, models.StepStatusFailed, result.StepResults[0].Status)
	assert.Equal(t, models.StepStatusFailed, result.StepResults[1].Status)
	assert.Equal(t, models.StepStatusFailed, result.StepResults[2].Status)
	assert.True(t, result.Blocked)
	assert.Equal(t, 0, result.SentActions)
}

func TestRunner_NilStepKeepsTraceAligned(t *testing.T) {
	t.Parallel()

	steps := []*models.JourneyStep{
		testutil.TriggerStep("contact.inactive"),
		nil,
		testutil.ActionStep(models.ChannelPush),
	}

	result := journey.NewRunner(clockwork.NewFakeClock()).Run(steps, models.SimulationContact{}, nil)

	require.Len(t, result.StepResults, len(steps))
	assert.Equal(t, models.StepStatusFailed, result.StepResults[1].Status)
	assert.Equal(t, "missing step", result.StepResults[1].Detail)
	assert.Equal(t, models.StepStatusPassed, result.StepResults[2].Status)
	assert.False(t, result.Blocked)
	assert.Equal(t, 1, result.SentActions)
}

func TestRunner_StrictEvaluatorOption(t *testing.T) {
	t.Parallel()

	steps := []*models.JourneyStep{testutil.ConditionStep("favouriteCourt", "eq", "3")}

	lenient := journey.NewRunner(clockwork.NewFakeClock()).Run(steps, models.SimulationContact{}, nil)
	strict := journey.NewRunner(clockwork.NewFakeClock(), journey.WithEvaluator(journey.Evaluator{Strict: true})).Run(steps, models.SimulationContact{}, nil)

	assert.False(t, lenient.Blocked)
	assert.True(t, strict.Blocked)
}
