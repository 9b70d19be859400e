package models

import "time"

// MinutesPerDay bounds minute-of-day values.
const MinutesPerDay = 24 * 60

// OrganizationPolicy is the organization-wide messaging policy. It is mutated by
// admin configuration and read-only to the evaluator.
type OrganizationPolicy struct {
	OrganizationID        string             `json:"organization_id"                    yaml:"organization_id"`
	Timezone              string             `json:"timezone"                           yaml:"timezone"`
	QuietHoursStartMinute *int               `json:"quiet_hours_start_minute,omitempty" yaml:"quiet_hours_start_minute,omitempty" validate:"omitempty,min=0,max=1439"`
	QuietHoursEndMinute   *int               `json:"quiet_hours_end_minute,omitempty"   yaml:"quiet_hours_end_minute,omitempty"   validate:"omitempty,min=0,max=1439"`
	CapPerDay             int                `json:"cap_per_day"                        yaml:"cap_per_day"                        validate:"min=0"`
	CapPerWeek            int                `json:"cap_per_week"                       yaml:"cap_per_week"                       validate:"min=0"`
	CapPerMonth           int                `json:"cap_per_month"                      yaml:"cap_per_month"                      validate:"min=0"`
	Approval              ApprovalEscalation `json:"approval"                           yaml:"approval"`
	UpdatedAt             time.Time          `json:"updated_at"                         yaml:"-"`
}

// ApprovalEscalation holds the timings used when a journey awaits approval.
type ApprovalEscalation struct {
	ReminderAfterMinutes int `json:"reminder_after_minutes" yaml:"reminder_after_minutes" validate:"min=0"`
	EscalateAfterMinutes int `json:"escalate_after_minutes" yaml:"escalate_after_minutes" validate:"min=0"`
}

// HasQuietHours reports whether both ends of the quiet window are configured.
func (p *OrganizationPolicy) HasQuietHours() bool {
	return p != nil && p.QuietHoursStartMinute != nil && p.QuietHoursEndMinute != nil
}

// Location resolves the policy timezone, defaulting to UTC.
func (p *OrganizationPolicy) Location() *time.Location {
	if p == nil || p.Timezone == "" {
		return time.UTC
	}

	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}

	return loc
}
