package journey_test

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/dukex/journey/pkg/journey"
	"github.com/dukex/journey/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, minute int) time.Time {
	return time.Date(2025, time.March, 10, hour, minute, 0, 0, time.UTC)
}

func TestApplyQuietHours_NilWindowPassesThrough(t *testing.T) {
	t.Parallel()

	candidate := at(23, 0)
	deferral := journey.ApplyQuietHours(candidate, nil)

	assert.Equal(t, candidate, deferral.Date)
	assert.False(t, deferral.DeferredByQuietHours)
}

func TestApplyQuietHours_EqualBoundsNeverDefer(t *testing.T) {
	t.Parallel()

	for _, bound := range []int{0, 480, 1320} {
		window := &journey.QuietHours{StartMinute: bound, EndMinute: bound}

		for minute := 0; minute < models.MinutesPerDay; minute++ {
			deferral := journey.ApplyQuietHours(at(minute/60, minute%60), window)
			require.False(t, deferral.DeferredByQuietHours, "bound %d minute %d", bound, minute)
		}
	}
}

func TestApplyQuietHours_SameDayWindow(t *testing.T) {
	t.Parallel()

	window := &journey.QuietHours{StartMinute: 12 * 60, EndMinute: 14 * 60}

	for minute := 0; minute < models.MinutesPerDay; minute++ {
		candidate := at(minute/60, minute%60)
		deferral := journey.ApplyQuietHours(candidate, window)

		inside := minute >= window.StartMinute && minute < window.EndMinute
		require.Equal(t, inside, deferral.DeferredByQuietHours, "minute %d", minute)

		if inside {
			require.Equal(t, at(14, 0), deferral.Date, "minute %d", minute)
		} else {
			require.Equal(t, candidate, deferral.Date, "minute %d", minute)
		}
	}
}

func TestApplyQuietHours_WrappingWindow(t *testing.T) {
	t.Parallel()

	window := &journey.QuietHours{StartMinute: 1320, EndMinute: 480}
	nextMorning := at(8, 0).AddDate(0, 0, 1)

	for minute := 0; minute < models.MinutesPerDay; minute++ {
		candidate := at(minute/60, minute%60)
		deferral := journey.ApplyQuietHours(candidate, window)

		inside := minute >= window.StartMinute || minute < window.EndMinute
		require.Equal(t, inside, deferral.DeferredByQuietHours, "minute %d", minute)

		switch {
		case minute >= window.StartMinute:
			require.Equal(t, nextMorning, deferral.Date, "minute %d", minute)
		case minute < window.EndMinute:
			require.Equal(t, at(8, 0), deferral.Date, "minute %d", minute)
		default:
			require.Equal(t, candidate, deferral.Date, "minute %d", minute)
		}
	}
}

func TestApplyQuietHours_ElevenPMDefersToNextMorning(t *testing.T) {
	t.Parallel()

	window := &journey.QuietHours{StartMinute: 22 * 60, EndMinute: 8 * 60}

	deferral := journey.ApplyQuietHours(at(23, 0), window)

	assert.True(t, deferral.DeferredByQuietHours)
	assert.Equal(t, time.Date(2025, time.March, 11, 8, 0, 0, 0, time.UTC), deferral.Date)
}

func TestApplyQuietHours_UsesWindowLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+3", 3*60*60)
	window := &journey.QuietHours{StartMinute: 22 * 60, EndMinute: 8 * 60, Location: loc}

	// 20:30 UTC is 23:30 local.
	deferral := journey.ApplyQuietHours(at(20, 30), window)

	require.True(t, deferral.DeferredByQuietHours)
	assert.Equal(t, time.Date(2025, time.March, 11, 5, 0, 0, 0, time.UTC), deferral.Date.UTC())
	assert.Equal(t, time.UTC, deferral.Date.Location())
}

func TestApplyQuietHours_ClockChanges(t *testing.T) {
	t.Parallel()

	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	tests := []struct {
		name      string
		start     int
		end       int
		candidate time.Time
		want      time.Time
	}{
		{
			// 02:00 does not exist on 2025-03-09; clocks jump from 01:59 EST to 03:00 EDT.
			name:      "window ends in the skipped hour",
			start:     60,
			end:       120,
			candidate: time.Date(2025, time.March, 9, 6, 30, 0, 0, time.UTC),
			want:      time.Date(2025, time.March, 9, 7, 0, 0, 0, time.UTC),
		},
		{
			name:      "window ends after the skipped hour",
			start:     60,
			end:       210,
			candidate: time.Date(2025, time.March, 9, 6, 30, 0, 0, time.UTC),
			want:      time.Date(2025, time.March, 9, 7, 30, 0, 0, time.UTC),
		},
		{
			name:      "overnight window across the spring change",
			start:     22 * 60,
			end:       8 * 60,
			candidate: time.Date(2025, time.March, 9, 4, 0, 0, 0, time.UTC),
			want:      time.Date(2025, time.March, 9, 12, 0, 0, 0, time.UTC),
		},
		{
			// 01:10 EST is the second pass through 01:00-02:00 on 2025-11-02.
			name:      "repeated hour defers to the later end",
			start:     60,
			end:       90,
			candidate: time.Date(2025, time.November, 2, 6, 10, 0, 0, time.UTC),
			want:      time.Date(2025, time.November, 2, 6, 30, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			window := &journey.QuietHours{StartMinute: tt.start, EndMinute: tt.end, Location: newYork}

			deferral := journey.ApplyQuietHours(tt.candidate, window)

			require.True(t, deferral.DeferredByQuietHours)
			assert.True(t, tt.want.Equal(deferral.Date), "got %s", deferral.Date)
			assert.True(t, deferral.Date.After(tt.candidate))
		})
	}
}

func TestQuietHoursFromPolicy(t *testing.T) {
	t.Parallel()

	start, end := 1320, 480

	assert.Nil(t, journey.QuietHoursFromPolicy(nil))
	assert.Nil(t, journey.QuietHoursFromPolicy(&models.OrganizationPolicy{QuietHoursStartMinute: &start}))

	window := journey.QuietHoursFromPolicy(&models.OrganizationPolicy{
		Timezone:              "not/a-zone",
		QuietHoursStartMinute: &start,
		QuietHoursEndMinute:   &end,
	})
	require.NotNil(t, window)
	assert.Equal(t, 1320, window.StartMinute)
	assert.Equal(t, 480, window.EndMinute)
	assert.Equal(t, time.UTC, window.Location)
}
