package journey

import (
	"time"

	"github.com/dukex/journey/pkg/models"
)

// QuietHours is a do-not-disturb window expressed in minutes of the day, read in
// Location. A window with Start > End wraps past midnight.
type QuietHours struct {
	StartMinute int
	EndMinute   int
	Location    *time.Location
}

// Deferral is the outcome of passing a candidate send time through quiet hours.
type Deferral struct {
	Date                 time.Time `json:"date"`
	DeferredByQuietHours bool      `json:"deferred_by_quiet_hours"`
}

// QuietHoursFromPolicy extracts the quiet window from a policy, or nil when the
// policy does not configure one.
func QuietHoursFromPolicy(policy *models.OrganizationPolicy) *QuietHours {
	if !policy.HasQuietHours() {
		return nil
	}

	return &QuietHours{
		StartMinute: *policy.QuietHoursStartMinute,
		EndMinute:   *policy.QuietHoursEndMinute,
		Location:    policy.Location(),
	}
}

// Contains reports whether the minute of the day falls inside the window.
func (q QuietHours) Contains(minute int) bool {
	start, end := normalizeMinute(q.StartMinute), normalizeMinute(q.EndMinute)

	switch {
	case start == end:
		return false
	case start < end:
		return minute >= start && minute < end
	default:
		return minute >= start || minute < end
	}
}

// ApplyQuietHours shifts candidate forward to the end of the quiet window when it
// falls inside it. A nil window passes the candidate through unchanged.
func ApplyQuietHours(candidate time.Time, window *QuietHours) Deferral {
	if window == nil {
		return Deferral{Date: candidate}
	}

	loc := window.Location
	if loc == nil {
		loc = time.UTC
	}

	local := candidate.In(loc)
	minute := local.Hour()*60 + local.Minute()

	if !window.Contains(minute) {
		return Deferral{Date: candidate}
	}

	// A wrapping window entered before midnight ends tomorrow.
	end := normalizeMinute(window.EndMinute)

	days := 0
	if end <= minute {
		days = 1
	}

	target := wallClock(local, days, end)

	// The end wall time repeats when clocks fall back; use its later occurrence.
	if !target.After(local) {
		_, targetOffset := target.Zone()
		_, localOffset := local.Zone()
		target = target.Add(time.Duration(targetOffset-localOffset) * time.Second)
	}

	return Deferral{Date: target.In(candidate.Location()), DeferredByQuietHours: true}
}

// wallClock returns minute of the day, days after day, in day's location. A wall time
// skipped by a forward clock change resolves to the instant of the change.
func wallClock(day time.Time, days, minute int) time.Time {
	target := time.Date(day.Year(), day.Month(), day.Day()+days, minute/60, minute%60, 0, 0, day.Location())
	if target.Hour()*60+target.Minute() == minute {
		return target
	}

	start, end := target.ZoneBounds()
	if target.Equal(start) || end.IsZero() {
		return target
	}

	return end
}

func normalizeMinute(minute int) int {
	minute %= models.MinutesPerDay
	if minute < 0 {
		minute += models.MinutesPerDay
	}

	return minute
}
